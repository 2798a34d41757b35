// Package fx provides foreign-exchange rates: a live rate source, a TTL
// cache shared across requests, and a resolver that applies configured
// overrides and fallbacks.
package fx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/flohan/hotelrunner/internal/currency"
	"github.com/flohan/hotelrunner/internal/infra"
)

// Pair identifies a conversion from Base into Target.
type Pair struct {
	Base   string
	Target string
}

// NewPair normalizes both codes.
func NewPair(base, target string) Pair {
	return Pair{Base: currency.Normalize(base), Target: currency.Normalize(target)}
}

// Key returns the "BASE_TARGET" form used by override configuration.
func (p Pair) Key() string { return p.Base + "_" + p.Target }

func (p Pair) String() string { return p.Base + "/" + p.Target }

// Identity reports whether the pair converts a currency into itself.
func (p Pair) Identity() bool { return p.Base == p.Target }

// ParsePairKey parses "TRY_EUR" (or "try-eur") into a Pair.
func ParsePairKey(key string) (Pair, error) {
	b, t, ok := strings.Cut(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"), "_")
	if !ok || len(b) != 3 || len(t) != 3 {
		return Pair{}, fmt.Errorf("invalid currency pair %q", key)
	}
	return NewPair(b, t), nil
}

// FetchFunc performs a live lookup for one pair.
type FetchFunc func(ctx context.Context, base, target string) (decimal.Decimal, error)

// Cache memoizes live rates per pair for a fixed TTL. Concurrent misses on
// the same pair share one fetch; different pairs never wait on each other.
type Cache struct {
	entries *infra.Cache[Pair, decimal.Decimal]
	fetch   FetchFunc
	group   singleflight.Group
}

// NewCache creates a rate cache. A zero TTL disables reuse so every call
// fetches. A nil clock means time.Now.
func NewCache(fetch FetchFunc, ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		entries: infra.NewCache[Pair, decimal.Decimal](ttl, now),
		fetch:   fetch,
	}
}

// Rate returns the conversion rate from base to target. Identical codes
// return exactly 1 without a lookup.
func (c *Cache) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	p := NewPair(base, target)
	if p.Identity() {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := c.entries.Get(p); ok {
		return rate, nil
	}

	v, err, _ := c.group.Do(p.Key(), func() (any, error) {
		if rate, ok := c.entries.Get(p); ok {
			return rate, nil
		}
		rate, err := c.fetch(ctx, p.Base, p.Target)
		if err != nil {
			return nil, err
		}
		c.entries.Set(p, rate)
		return rate, nil
	})
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fx %s: %w", p, err)
	}
	return v.(decimal.Decimal), nil
}
