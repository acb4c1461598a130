package aggregator

import (
	"sync"
	"time"
)

// Cache stores aggregation results keyed by query shape. A persistent
// implementation should treat read/write failures as cache misses.
type Cache interface {
	Get(key string) (*Result, bool)
	Set(key string, result *Result)
	Clear()
}

type cacheEntry struct {
	result   *Result
	storedAt time.Time
}

// MemoryCache is an in-process TTL cache, safe for concurrent use. The clock
// is injectable so tests can control expiry deterministically.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(ttl, time.Now)
}

func NewMemoryCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached result for key if it is younger than the TTL.
// Expired entries are evicted on access.
func (c *MemoryCache) Get(key string) (*Result, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		if stored, still := c.entries[key]; still && stored.storedAt == entry.storedAt {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.result, true
}

func (c *MemoryCache) Set(key string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, storedAt: c.now()}
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
