package hotelrunner

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flohan/hotelrunner/pkg/utils"
)

// Room is the part of a room record the availability engine needs.
type Room struct {
	Name     string
	Total    int
	Price    decimal.Decimal
	Currency string // upper-cased sales currency, empty when the record has none
}

// Reservation is one booking occupying a room type for [CheckIn, CheckOut).
type Reservation struct {
	RoomType string
	CheckIn  time.Time
	CheckOut time.Time
}

// ParseRoom extracts a Room from a raw record. Each field is taken from the
// first key holding a non-empty value, in priority order:
//
//	name:     name, room_type_name, room_type
//	total:    total_count, total, count
//	price:    price, default_price, base_price
//	currency: sales_currency, currency
//
// Records without a usable name are rejected. Unparseable numbers are zero.
func ParseRoom(rec Record) (Room, bool) {
	name := stringValue(first(rec, "name", "room_type_name", "room_type"))
	if name == "" {
		return Room{}, false
	}
	room := Room{
		Name:  name,
		Total: intValue(first(rec, "total_count", "total", "count")),
		Price: decimalValue(first(rec, "price", "default_price", "base_price")),
	}
	if s, ok := first(rec, "sales_currency", "currency").(string); ok {
		room.Currency = strings.ToUpper(strings.TrimSpace(s))
	}
	return room, true
}

// ParseReservation extracts a Reservation. Records missing the room type or
// either date, or with dates that do not parse, are rejected.
func ParseReservation(rec Record) (Reservation, bool) {
	roomType := stringValue(first(rec, "room_type", "room_type_name"))
	in, _ := first(rec, "check_in").(string)
	out, _ := first(rec, "check_out").(string)
	if roomType == "" || in == "" || out == "" {
		return Reservation{}, false
	}
	start, err := utils.ParseDate(in)
	if err != nil {
		return Reservation{}, false
	}
	end, err := utils.ParseDate(out)
	if err != nil {
		return Reservation{}, false
	}
	return Reservation{RoomType: roomType, CheckIn: start, CheckOut: end}, true
}

// first returns the first value under keys that is not empty. Empty means
// absent, null, "", zero, false, or an empty list or object.
func first(rec Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && !isEmpty(v) {
			return v
		}
	}
	return nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	}
	return ""
}

// intValue truncates numbers toward zero. Strings must hold an integer.
func intValue(v any) int {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
		if f, err := x.Float64(); err == nil && !math.IsInf(f, 0) {
			return int(f)
		}
	case float64:
		return int(x)
	case int:
		return x
	case int64:
		return int(x)
	case bool:
		if x {
			return 1
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return i
		}
	}
	return 0
}

func decimalValue(v any) decimal.Decimal {
	switch x := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case bool:
		if x {
			return decimal.NewFromInt(1)
		}
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(x)); err == nil {
			return d
		}
	}
	return decimal.Zero
}
