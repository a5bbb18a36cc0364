package registry

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// Cache memoizes one LoadResult. It is owned by whoever composes the loader;
// there is no package-level instance.
//
// Every Invalidate bumps a generation counter. Store only accepts a result
// stamped with the current generation, so a load that started before an
// invalidation can never repopulate the cache.
type Cache struct {
	mu       sync.RWMutex
	entry    *LoadResult
	storedAt time.Time
	gen      uint64
	ttl      time.Duration
	now      Clock
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL expires entries after d. Zero (the default) keeps them until
// Invalidate.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithClock injects the time source.
func WithClock(now Clock) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates an empty Cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result if present and fresh.
func (c *Cache) Get() (LoadResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil {
		return LoadResult{}, false
	}
	if c.ttl > 0 && c.now().Sub(c.storedAt) >= c.ttl {
		return LoadResult{}, false
	}
	return c.entry.Clone(), true
}

// Generation returns the current generation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Store saves res if gen is still current. It reports whether it stored.
func (c *Cache) Store(gen uint64, res LoadResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	stored := res.Clone()
	c.entry = &stored
	c.storedAt = c.now()
	return true
}

// Invalidate drops the entry and starts a new generation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
	c.gen++
}

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time {
	return c.now()
}
