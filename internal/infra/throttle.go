package infra

import (
	"context"
	"sync"
	"time"
)

// Throttle is a token bucket pacing outbound requests to a single upstream.
type Throttle struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	poll       time.Duration
}

// NewThrottle allows maxTokens requests per refillRate. A non-positive
// maxTokens disables throttling.
func NewThrottle(maxTokens int, refillRate time.Duration) *Throttle {
	return &Throttle{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
		poll:       50 * time.Millisecond,
	}
}

// Wait blocks until a token is available or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.maxTokens <= 0 {
		return nil
	}
	for {
		t.mu.Lock()
		t.refill(time.Now())
		if t.tokens > 0 {
			t.tokens--
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.poll):
		}
	}
}

// refill must be called with mu held.
func (t *Throttle) refill(now time.Time) {
	elapsed := now.Sub(t.lastRefill)
	if elapsed < t.refillRate {
		return
	}
	periods := int(elapsed / t.refillRate)
	t.tokens += periods * t.maxTokens
	if t.tokens > t.maxTokens {
		t.tokens = t.maxTokens
	}
	t.lastRefill = t.lastRefill.Add(time.Duration(periods) * t.refillRate)
}
