// Package cache provides an in-memory TTL cache.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryCache maps string keys to values that expire after a TTL. Expired
// entries are dropped on lookup and by Prune.
type MemoryCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	now     func() time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{
		entries: make(map[string]*entry[V]),
		now:     time.Now,
	}
}

// Get returns the value stored under key, if it has not expired.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.Invalidate(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl.
func (c *MemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	e := &entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Invalidate removes an entry from the cache
func (c *MemoryCache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll removes all entries from the cache
func (c *MemoryCache[V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.mu.Unlock()
}

// Prune removes expired entries and returns how many it removed.
func (c *MemoryCache[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// PruneEvery calls Prune every interval until ctx is done.
func (c *MemoryCache[V]) PruneEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Prune()
		case <-ctx.Done():
			return
		}
	}
}

// Len returns the number of entries, expired or not.
func (c *MemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
