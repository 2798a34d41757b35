package fx

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Source names where a resolved rate came from.
type Source string

const (
	SourceIdentity Source = "identity"
	SourceOverride Source = "override"
	SourceLive     Source = "live"
	SourceLegacy   Source = "legacy"
	SourceFallback Source = "fallback"
)

// legacyRates are hardcoded last-known rates used when the live source fails.
var legacyRates = map[Pair]decimal.Decimal{
	{Base: "TRY", Target: "EUR"}: decimal.RequireFromString("0.02857"),
}

// Quote is a resolved rate.
type Quote struct {
	Pair   Pair            `json:"pair"`
	Rate   decimal.Decimal `json:"rate"`
	Source Source          `json:"source"`
}

// Resolver returns a rate for any pair, never failing. Order:
// identity, configured override, live (cached) lookup, legacy pair
// default, then 1.
type Resolver struct {
	overrides map[string]decimal.Decimal
	live      *Cache
	logger    *slog.Logger
}

// NewResolver creates a resolver. overrides is keyed by "BASE_TARGET";
// live may be nil to disable live lookups.
func NewResolver(overrides map[string]decimal.Decimal, live *Cache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{overrides: overrides, live: live, logger: logger}
}

// Rate resolves the rate from base into target.
func (r *Resolver) Rate(ctx context.Context, base, target string) Quote {
	p := NewPair(base, target)
	if p.Identity() {
		return Quote{Pair: p, Rate: decimal.NewFromInt(1), Source: SourceIdentity}
	}
	if rate, ok := r.overrides[p.Key()]; ok {
		return Quote{Pair: p, Rate: rate, Source: SourceOverride}
	}
	if r.live != nil {
		rate, err := r.live.Rate(ctx, p.Base, p.Target)
		if err == nil {
			return Quote{Pair: p, Rate: rate, Source: SourceLive}
		}
		r.logger.Warn("live fx lookup failed", "pair", p.String(), "error", err)
	}
	if rate, ok := legacyRates[p]; ok {
		return Quote{Pair: p, Rate: rate, Source: SourceLegacy}
	}
	return Quote{Pair: p, Rate: decimal.NewFromInt(1), Source: SourceFallback}
}
