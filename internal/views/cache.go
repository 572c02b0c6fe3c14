package views

import (
	"sync"
	"time"
)

// listCache is a TTL cache for raw backend collections, keyed by tenant and
// collection kind. Switching tabs or roles recomputes projections from the
// cached collections instead of refetching.
type listCache struct {
	ttl        time.Duration
	maxEntries int

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

func newListCache(ttl time.Duration, maxEntries int) *listCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &listCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		cache:      make(map[string]cacheEntry),
	}
}

func (c *listCache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (c *listCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= c.maxEntries {
		c.evictExpired()
	}

	c.cache[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// evictExpired removes expired entries. Must be called with mu held.
func (c *listCache) evictExpired() {
	now := time.Now()
	for k, v := range c.cache {
		if now.After(v.expiresAt) {
			delete(c.cache, k)
		}
	}
}

// invalidate removes all entries for a tenant, for example after a
// submission changes the article listing.
func (c *listCache) invalidate(tenantPrefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.cache {
		if len(k) >= len(tenantPrefix) && k[:len(tenantPrefix)] == tenantPrefix {
			delete(c.cache, k)
		}
	}
}

// len returns the number of entries. For testing.
func (c *listCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
