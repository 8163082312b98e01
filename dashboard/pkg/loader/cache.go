package loader

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cacheKey struct {
	filename   string
	dataset    string
	allowEmpty bool
}

type cacheEntry struct {
	result     *Result
	insertedAt time.Time
}

// resultCache memoizes load results by (filename, dataset, allowEmpty) for a
// fixed TTL. Invalidation is time-based only; concurrent loads for the same
// key may race to populate an entry, which is benign since loads are
// idempotent.
type resultCache struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
}

func newResultCache(clock clockwork.Clock, ttl time.Duration) *resultCache {
	return &resultCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
	}
}

func (c *resultCache) get(key cacheKey) (*Result, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.clock.Since(entry.insertedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another load may have refreshed it.
		if cur, ok := c.entries[key]; ok && c.clock.Since(cur.insertedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.result, true
}

func (c *resultCache) put(key cacheKey, result *Result) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: result, insertedAt: c.clock.Now()}
	c.mu.Unlock()
}

func (c *resultCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
