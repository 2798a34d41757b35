// Package offer turns an availability result into a priced offer in the
// guest's display currency.
package offer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flohan/hotelrunner/internal/currency"
)

// CancellationPolicy is attached to every offer.
const CancellationPolicy = "Free cancellation up to 7 days before check-in."

// offerMinorDigits is the minor-unit precision the composer assumes for both
// the base and the display amount, whatever the currencies actually use.
// JPY offers are therefore off by a factor of 100 on the display side.
const offerMinorDigits = 2

// TimestampLayout renders fx_timestamp in UTC with up to microsecond
// precision, trailing zeros trimmed.
const TimestampLayout = "2006-01-02T15:04:05.999999Z07:00"

// ComposeError reports an availability result the composer cannot use.
type ComposeError struct {
	Field string
	Msg   string
}

func (e *ComposeError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// Result is the part of an availability result an offer is priced from.
type Result struct {
	Currency string
	Total    decimal.Decimal
	Nights   int
}

// ParseAvailabilityResult reads currency, total and nights from a decoded
// JSON availability result. A missing currency is the property base, a
// missing total is zero and missing nights is one. A present but null or
// non-numeric total is an error.
func ParseAvailabilityResult(raw map[string]any, propertyBase string) (Result, error) {
	if raw == nil {
		return Result{}, &ComposeError{Field: "availability_result", Msg: "is required"}
	}
	res := Result{Currency: currency.Normalize(propertyBase), Nights: 1}

	if v, ok := raw["currency"]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return Result{}, &ComposeError{Field: "currency", Msg: fmt.Sprintf("must be a string, got %T", v)}
		}
		if s = currency.Normalize(s); s != "" {
			res.Currency = s
		}
	}

	if v, ok := raw["total"]; ok {
		total, err := toDecimal(v)
		if err != nil {
			return Result{}, &ComposeError{Field: "total", Msg: err.Error()}
		}
		res.Total = total
	}

	if v, ok := raw["nights"]; ok {
		nights, err := toInt(v)
		if err != nil {
			return Result{}, &ComposeError{Field: "nights", Msg: err.Error()}
		}
		res.Nights = nights
	}
	return res, nil
}

// Input is everything Compose needs.
type Input struct {
	Result           Result
	DisplayCurrency  string
	FXRate           decimal.Decimal
	FXTimestamp      time.Time
	IncludeBreakfast bool
}

// Conditions are the booking terms of an offer.
type Conditions struct {
	BreakfastIncluded  bool   `json:"breakfast_included"`
	CancellationPolicy string `json:"cancellation_policy"`
}

// Offer is a priced stay.
type Offer struct {
	BaseCurrency    string
	BaseTotal       decimal.Decimal
	DisplayCurrency string
	DisplayTotal    decimal.Decimal
	FXRateUsed      decimal.Decimal
	FXTimestamp     time.Time
	Nights          int
	Conditions      Conditions
}

// Compose prices an offer. It performs no I/O.
func Compose(in Input) Offer {
	display := currency.Normalize(in.DisplayCurrency)
	baseMinor := in.Result.Total.Shift(offerMinorDigits).IntPart()

	displayMinor, rateUsed := currency.ApplyFX(baseMinor, in.Result.Currency, display, in.FXRate)

	return Offer{
		BaseCurrency:    in.Result.Currency,
		BaseTotal:       in.Result.Total,
		DisplayCurrency: display,
		DisplayTotal:    decimal.New(displayMinor, -offerMinorDigits),
		FXRateUsed:      rateUsed,
		FXTimestamp:     in.FXTimestamp.UTC(),
		Nights:          in.Result.Nights,
		Conditions: Conditions{
			BreakfastIncluded:  in.IncludeBreakfast,
			CancellationPolicy: CancellationPolicy,
		},
	}
}

type offerJSON struct {
	BaseCurrency    string     `json:"base_currency"`
	BaseTotal       float64    `json:"base_total"`
	DisplayCurrency string     `json:"display_currency"`
	DisplayTotal    float64    `json:"display_total"`
	FXRateUsed      float64    `json:"fx_rate_used"`
	FXTimestamp     string     `json:"fx_timestamp"`
	Nights          int        `json:"nights"`
	Conditions      Conditions `json:"conditions"`
}

// MarshalJSON renders money as JSON numbers and the timestamp in TimestampLayout.
func (o Offer) MarshalJSON() ([]byte, error) {
	return json.Marshal(offerJSON{
		BaseCurrency:    o.BaseCurrency,
		BaseTotal:       o.BaseTotal.InexactFloat64(),
		DisplayCurrency: o.DisplayCurrency,
		DisplayTotal:    o.DisplayTotal.InexactFloat64(),
		FXRateUsed:      o.FXRateUsed.InexactFloat64(),
		FXTimestamp:     o.FXTimestamp.UTC().Format(TimestampLayout),
		Nights:          o.Nights,
		Conditions:      o.Conditions,
	})
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid number %q", x)
		}
		return d, nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("must be a number, got null")
	}
	return decimal.Decimal{}, fmt.Errorf("must be a number, got %T", v)
}

// toInt truncates fractional numbers toward zero.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), nil
		}
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", x)
		}
		return int(d.IntPart()), nil
	case float64:
		return int(x), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", x)
		}
		return i, nil
	case nil:
		return 0, fmt.Errorf("must be an integer, got null")
	}
	return 0, fmt.Errorf("must be an integer, got %T", v)
}
