package availability

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/flohan/hotelrunner/internal/hotelrunner"
	"github.com/flohan/hotelrunner/pkg/utils"
)

// Matrix is the per-night view of a stay: remaining rooms and unit price per
// room type, keyed by ISO date.
type Matrix struct {
	Availability  map[string]map[string]int
	Prices        map[string]map[string]decimal.Decimal
	Nights        int
	PriceCurrency string
}

// BuildMatrix computes availability for every night in [checkIn, checkOut).
//
// A reservation occupies the nights of [its check-in, its check-out) that
// fall inside the stay; the departure day is never occupied. Remaining
// inventory is floored at zero. When several rooms share a name the last
// one wins, and PriceCurrency is the last non-empty sales currency seen,
// defaulting to defaultCurrency.
func BuildMatrix(checkIn, checkOut time.Time, rooms []hotelrunner.Room, reservations []hotelrunner.Reservation, defaultCurrency string) Matrix {
	totals := make(map[string]int, len(rooms))
	prices := make(map[string]decimal.Decimal, len(rooms))
	priceCurrency := defaultCurrency
	for _, r := range rooms {
		totals[r.Name] = r.Total
		prices[r.Name] = r.Price
		if r.Currency != "" {
			priceCurrency = r.Currency
		}
	}

	booked := make(map[string]map[string]int)
	for _, res := range reservations {
		from := utils.MaxDate(res.CheckIn, checkIn)
		to := utils.MinDate(res.CheckOut, checkOut)
		for _, night := range utils.Nights(from, to) {
			day := utils.FormatDate(night)
			if booked[day] == nil {
				booked[day] = make(map[string]int)
			}
			booked[day][res.RoomType]++
		}
	}

	m := Matrix{
		Availability:  make(map[string]map[string]int),
		Prices:        make(map[string]map[string]decimal.Decimal),
		Nights:        utils.DaysBetween(checkIn, checkOut),
		PriceCurrency: priceCurrency,
	}
	for _, night := range utils.Nights(checkIn, checkOut) {
		day := utils.FormatDate(night)
		avail := make(map[string]int, len(totals))
		dayPrices := make(map[string]decimal.Decimal, len(totals))
		for roomType, total := range totals {
			avail[roomType] = max(total-booked[day][roomType], 0)
			dayPrices[roomType] = prices[roomType]
		}
		m.Availability[day] = avail
		m.Prices[day] = dayPrices
	}
	return m
}
