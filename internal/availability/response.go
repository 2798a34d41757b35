package availability

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/flohan/hotelrunner/internal/hotelrunner"
)

// Response is the answer to an availability query.
type Response struct {
	Total         *decimal.Decimal // nil when the summary was unavailable
	Currency      string
	Nights        int
	PriceCurrency string
	Availability  map[string]map[string]int
	Prices        map[string]map[string]decimal.Decimal
	Raw           Raw
}

// Raw carries the upstream payloads unchanged. A nil Summary or Currencies
// means that fetch failed.
type Raw struct {
	Summary      hotelrunner.Record   `json:"summary"`
	Rooms        []hotelrunner.Record `json:"rooms"`
	Reservations []hotelrunner.Record `json:"reservations"`
	Currencies   []any                `json:"currencies"`
}

type responseJSON struct {
	Total         *float64                      `json:"total"`
	Currency      string                        `json:"currency"`
	Nights        int                           `json:"nights"`
	PriceCurrency string                        `json:"price_currency"`
	Availability  map[string]map[string]int     `json:"availability"`
	Prices        map[string]map[string]float64 `json:"prices"`
	Raw           Raw                           `json:"raw"`
}

// MarshalJSON renders money as JSON numbers.
func (r Response) MarshalJSON() ([]byte, error) {
	out := responseJSON{
		Currency:      r.Currency,
		Nights:        r.Nights,
		PriceCurrency: r.PriceCurrency,
		Availability:  r.Availability,
		Prices:        make(map[string]map[string]float64, len(r.Prices)),
		Raw:           r.Raw,
	}
	if r.Total != nil {
		f := r.Total.InexactFloat64()
		out.Total = &f
	}
	for day, byType := range r.Prices {
		m := make(map[string]float64, len(byType))
		for roomType, price := range byType {
			m[roomType] = price.InexactFloat64()
		}
		out.Prices[day] = m
	}
	if out.Availability == nil {
		out.Availability = map[string]map[string]int{}
	}
	return json.Marshal(out)
}

// AsResult returns the fields the offer composer reads from an availability
// result, in their wire form.
func (r Response) AsResult() map[string]any {
	result := map[string]any{
		"currency": r.Currency,
		"nights":   r.Nights,
		"total":    nil,
	}
	if r.Total != nil {
		result["total"] = json.Number(r.Total.String())
	}
	return result
}
