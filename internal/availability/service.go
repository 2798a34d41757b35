// Package availability reconciles HotelRunner room inventory with
// reservations into a per-night availability and price matrix.
package availability

//go:generate mockgen -source=service.go -destination=../mocks/upstream.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/flohan/hotelrunner/internal/currency"
	"github.com/flohan/hotelrunner/internal/hotelrunner"
	"github.com/flohan/hotelrunner/pkg/utils"
)

// Reservation lookups are padded so multi-night bookings that started
// before the stay are still seen.
const (
	LookbackDays  = 30
	LookaheadDays = 1
)

// ErrUpstreamUnavailable matches every failure that prevented a matrix from
// being built.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError is a fatal failure fetching rooms or reservations.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream unavailable: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// Upstream is the subset of the HotelRunner client the engine needs.
type Upstream interface {
	Rooms(ctx context.Context) ([]hotelrunner.Record, error)
	Reservations(ctx context.Context, from, to time.Time) ([]hotelrunner.Record, error)
	Summary(ctx context.Context, q hotelrunner.SummaryQuery) (hotelrunner.Record, error)
	Currencies(ctx context.Context) ([]any, error)
}

// Service answers availability queries.
type Service struct {
	upstream     Upstream
	baseCurrency string
	logger       *slog.Logger
}

// NewService creates an availability service. baseCurrency is the property's
// own currency, used whenever nothing more specific is known.
func NewService(upstream Upstream, baseCurrency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		upstream:     upstream,
		baseCurrency: currency.Normalize(baseCurrency),
		logger:       logger.With("component", "availability"),
	}
}

// GetAvailability fetches inventory, reservations, the priced summary and
// the currency list concurrently and builds the response. Inventory and
// reservation failures are fatal and match ErrUpstreamUnavailable; summary
// and currency list failures only null their part of the answer.
func (s *Service) GetAvailability(ctx context.Context, req Request) (*Response, error) {
	requested := req.Currency()
	if requested == "" {
		requested = s.baseCurrency
	}

	var (
		rooms        []hotelrunner.Record
		reservations []hotelrunner.Record
		summary      hotelrunner.Record
		currencies   []any
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if rooms, err = s.upstream.Rooms(gctx); err != nil {
			return &UpstreamError{Op: "rooms", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		from := utils.AddDays(req.CheckIn(), -LookbackDays)
		to := utils.AddDays(req.CheckOut(), LookaheadDays)
		var err error
		if reservations, err = s.upstream.Reservations(gctx, from, to); err != nil {
			return &UpstreamError{Op: "reservations", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		summary, err = s.upstream.Summary(gctx, hotelrunner.SummaryQuery{
			CheckIn:  utils.FormatDate(req.CheckIn()),
			CheckOut: utils.FormatDate(req.CheckOut()),
			Adults:   req.Adults(),
			Children: req.Children(),
			Currency: requested,
		})
		if err != nil {
			s.logger.Warn("summary unavailable, continuing without total", "error", err)
			summary = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if currencies, err = s.upstream.Currencies(gctx); err != nil {
			s.logger.Warn("currency list unavailable", "error", err)
			currencies = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("availability failed", "error", err)
		return nil, err
	}

	parsedRooms := make([]hotelrunner.Room, 0, len(rooms))
	for _, rec := range rooms {
		if room, ok := hotelrunner.ParseRoom(rec); ok {
			parsedRooms = append(parsedRooms, room)
		}
	}
	parsedReservations := make([]hotelrunner.Reservation, 0, len(reservations))
	for _, rec := range reservations {
		if res, ok := hotelrunner.ParseReservation(rec); ok {
			parsedReservations = append(parsedReservations, res)
		}
	}

	m := BuildMatrix(req.CheckIn(), req.CheckOut(), parsedRooms, parsedReservations, s.baseCurrency)

	resp := &Response{
		Total:         summaryTotal(summary),
		Currency:      s.responseCurrency(summary, req),
		Nights:        m.Nights,
		PriceCurrency: m.PriceCurrency,
		Availability:  m.Availability,
		Prices:        m.Prices,
		Raw: Raw{
			Summary:      summary,
			Rooms:        rooms,
			Reservations: reservations,
			Currencies:   currencies,
		},
	}
	s.logger.Info("availability computed",
		"check_in", utils.FormatDate(req.CheckIn()),
		"check_out", utils.FormatDate(req.CheckOut()),
		"rooms", len(parsedRooms),
		"reservations", len(parsedReservations),
		"summary", summary != nil,
	)
	return resp, nil
}

// responseCurrency prefers the summary's currency, then the requested one,
// then the property base currency.
func (s *Service) responseCurrency(summary hotelrunner.Record, req Request) string {
	if c, ok := summary["currency"].(string); ok && strings.TrimSpace(c) != "" {
		return currency.Normalize(c)
	}
	if req.Currency() != "" {
		return req.Currency()
	}
	return s.baseCurrency
}

// summaryTotal reads the stay total; anything that is not a number is nil.
func summaryTotal(summary hotelrunner.Record) *decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := summary["total"].(type) {
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &d
}
