package scoring

import (
	"fmt"
	"sync"
	"time"
)

// ScoreCache memoizes computed scores keyed by (item, viewer). Absence is
// never an error, only "must recompute". Implementations must be safe for
// concurrent use.
type ScoreCache interface {
	Get(key string) (float64, bool)
	Set(key string, score float64, ttl time.Duration)
	Invalidate(key string)
}

// CacheKey builds the cache key for an (item, viewer) pair.
func CacheKey(itemID, viewerID int64) string {
	return fmt.Sprintf("score_%d_%d", itemID, viewerID)
}

type cacheEntry struct {
	score     float64
	expiresAt time.Time
}

// MemoryCache is a thread-safe in-process ScoreCache with per-entry TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates an empty in-process score cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached score and true if present and not expired.
// Expired entries are removed on read.
func (c *MemoryCache) Get(key string) (float64, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return 0, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return 0, false
	}
	return entry.score, true
}

// Set stores a score with the given TTL.
func (c *MemoryCache) Set(key string, score float64, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{score: score, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes a cached score.
func (c *MemoryCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
