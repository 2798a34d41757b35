package offer

import (
	"context"
	"log/slog"
	"time"

	"github.com/flohan/hotelrunner/internal/currency"
	"github.com/flohan/hotelrunner/internal/fx"
)

// RateResolver supplies FX rates. *fx.Resolver implements it.
type RateResolver interface {
	Rate(ctx context.Context, base, target string) fx.Quote
}

// Request is a compose call as received from the assistant platform.
type Request struct {
	AvailabilityResult map[string]any `json:"availability_result"`
	DisplayCurrency    string         `json:"display_currency,omitempty"`
	currency.Hints
	IncludeBreakfast *bool `json:"include_breakfast,omitempty"`
}

// Composer resolves the display currency and FX rate for a request and
// composes the offer.
type Composer struct {
	rates        RateResolver
	baseCurrency string
	now          func() time.Time
	logger       *slog.Logger
}

// NewComposer creates a composer. A nil clock means time.Now.
func NewComposer(rates RateResolver, baseCurrency string, now func() time.Time, logger *slog.Logger) *Composer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		rates:        rates,
		baseCurrency: currency.Normalize(baseCurrency),
		now:          now,
		logger:       logger.With("component", "offer"),
	}
}

// DisplayCurrency is the explicit display currency if given, otherwise the
// decision over the request's hints.
func (c *Composer) DisplayCurrency(req Request) string {
	if d := currency.Normalize(req.DisplayCurrency); d != "" {
		return d
	}
	return currency.Decide(req.Hints, c.baseCurrency)
}

// Compose prices req. Errors are *ComposeError.
func (c *Composer) Compose(ctx context.Context, req Request) (Offer, error) {
	result, err := ParseAvailabilityResult(req.AvailabilityResult, c.baseCurrency)
	if err != nil {
		return Offer{}, err
	}
	display := c.DisplayCurrency(req)
	quote := c.rates.Rate(ctx, result.Currency, display)

	breakfast := true
	if req.IncludeBreakfast != nil {
		breakfast = *req.IncludeBreakfast
	}

	o := Compose(Input{
		Result:           result,
		DisplayCurrency:  display,
		FXRate:           quote.Rate,
		FXTimestamp:      c.now(),
		IncludeBreakfast: breakfast,
	})
	c.logger.Info("offer composed",
		"base_currency", o.BaseCurrency,
		"display_currency", o.DisplayCurrency,
		"fx_source", string(quote.Source),
		"fx_rate", o.FXRateUsed.String(),
		"nights", o.Nights,
	)
	return o, nil
}
