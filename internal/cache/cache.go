package cache

import (
	"sync"
	"time"
)

// entry is a cached value with its fetch time
type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a string-keyed store with a fixed time-to-live per instance.
// A read is a hit iff the entry's age is strictly less than the TTL; an entry
// aged exactly TTL is a miss. There is no eviction beyond TTL expiry.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// Stats describes the cache contents
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// New creates a cache with the given TTL
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key. The second return is false when the
// key was never set or the entry has expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// FetchedAt returns when the entry for key was stored, if present. Expired
// entries still report their fetch time so callers can reason about staleness.
func (c *Cache[V]) FetchedAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

// Set stores value under key, stamped with the current time
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, fetchedAt: c.now()}
}

// Clear removes all entries
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Stats returns the current size and key set, including entries that have
// expired but not been overwritten.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return Stats{Size: len(c.entries), Keys: keys}
}
