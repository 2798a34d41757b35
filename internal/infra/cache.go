// Package infra provides shared infrastructure components used across
// the application: caching, outbound request throttling, and retries.
package infra

import (
	"sync"
	"time"
)

// CacheEntry holds a cached value with expiration.
type CacheEntry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory TTL cache. The clock is injectable so
// expiry can be driven deterministically in tests.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]CacheEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a new cache with the given default TTL. A nil clock
// means time.Now.
func NewCache[K comparable, V any](ttl time.Duration, now func() time.Time) *Cache[K, V] {
	if now == nil {
		now = time.Now
	}
	return &Cache[K, V]{
		entries: make(map[K]CacheEntry[V]),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the value for key if present and not yet expired.
// An entry is live while now < ExpiresAt, so a zero TTL never hits.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.ExpiresAt) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores a value that expires after the cache TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.entries[key] = CacheEntry[V]{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}
