package market

import (
	"sync"
	"time"
)

// cacheEntry pairs resolved returns with the time they were computed.
type cacheEntry struct {
	stats      ReturnStats
	computedAt time.Time
}

// Cache stores the most recent returns per symbol with a freshness window.
// Stale entries are treated as absent on read and overwritten on the next
// put; nothing is ever evicted in the background.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewCache constructs a cache with the given freshness window.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached stats for symbol when present and still fresh.
func (c *Cache) Get(symbol string, now time.Time) (ReturnStats, bool) {
	c.mu.RLock()
	entry, ok := c.entries[symbol]
	c.mu.RUnlock()

	if !ok || now.Sub(entry.computedAt) >= c.ttl {
		return ReturnStats{}, false
	}
	return entry.stats, true
}

// Put unconditionally overwrites the entry for symbol.
func (c *Cache) Put(symbol string, stats ReturnStats, now time.Time) {
	c.mu.Lock()
	c.entries[symbol] = cacheEntry{stats: stats, computedAt: now}
	c.mu.Unlock()
}
