// Package cache provides a small in-memory TTL cache used to keep the
// progress polling endpoint cheap under repeated client polls.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe map with per-cache expiry and explicit
// invalidation. Expired entries are dropped lazily on read.
type TTL[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[K]entry[V]
}

// NewTTL creates a cache whose entries expire ttl after being set.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[K]entry[V]),
	}
}

// NewTTLWithClock creates a cache with an injected clock for tests.
func NewTTLWithClock[K comparable, V any](ttl time.Duration, now func() time.Time) *TTL[K, V] {
	c := NewTTL[K, V](ttl)
	c.now = now

	return c
}

// Get returns the cached value and true when present and not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}

	if c.now().After(e.expiresAt) {
		c.Invalidate(key)

		var zero V

		return zero, false
	}

	return e.value, true
}

// Set stores a value, restarting its TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate removes a key immediately. Used after state transitions so
// pollers never observe a stale terminal status.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the number of stored entries, including not-yet-reaped
// expired ones.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
