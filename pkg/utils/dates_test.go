package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-10-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2025 || d.Month() != time.October || d.Day() != 1 {
		t.Errorf("ParseDate = %v, want 2025-10-01", d)
	}
	if d.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", d.Location())
	}

	for _, bad := range []string{"", "2025-13-01", "2025-02-30", "01.10.2025", "2025-10-01T00:00:00Z"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2025-10-01", "2025-10-04", 3},
		{"2025-10-01", "2025-10-01", 0},
		{"2025-10-04", "2025-10-01", -3},
		{"2024-02-28", "2024-03-01", 2}, // leap year
		{"2025-03-29", "2025-03-31", 2},
	}
	for _, tt := range tests {
		s, _ := ParseDate(tt.start)
		e, _ := ParseDate(tt.end)
		if got := DaysBetween(s, e); got != tt.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestNightsExcludesDeparture(t *testing.T) {
	s, _ := ParseDate("2025-10-01")
	e, _ := ParseDate("2025-10-03")

	nights := Nights(s, e)
	if len(nights) != 2 {
		t.Fatalf("expected 2 nights, got %d", len(nights))
	}
	if FormatDate(nights[0]) != "2025-10-01" || FormatDate(nights[1]) != "2025-10-02" {
		t.Errorf("unexpected nights: %v", nights)
	}

	if got := Nights(e, s); got != nil {
		t.Errorf("reversed range should be empty, got %v", got)
	}
}

func TestMinMaxDate(t *testing.T) {
	a, _ := ParseDate("2025-10-01")
	b, _ := ParseDate("2025-10-05")
	if !MaxDate(a, b).Equal(b) || !MaxDate(b, a).Equal(b) {
		t.Error("MaxDate should return the later date")
	}
	if !MinDate(a, b).Equal(a) || !MinDate(b, a).Equal(a) {
		t.Error("MinDate should return the earlier date")
	}
}
