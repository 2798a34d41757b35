// Package utils provides calendar-date helpers shared by the availability
// engine and the HotelRunner client.
package utils

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar-date layout used on every HotelRunner wire format.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from start to end.
// The result is negative when end is before start.
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// Nights returns every occupied night in [start, end). The departure day
// itself is never included.
func Nights(start, end time.Time) []time.Time {
	n := DaysBetween(start, end)
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	for d := start; d.Before(end); d = AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// MaxDate returns the later of a and b.
func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// MinDate returns the earlier of a and b.
func MinDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
