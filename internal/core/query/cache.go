package query

import (
	"sync"
	"sync/atomic"

	"github.com/helix-engine/helix/internal/core/entity"
)

// CacheStats counts cache activity.
type CacheStats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
	Entries       int
}

// Cache memoizes query results keyed by filter signature. Any structural
// change to the entity population invalidates every entry wholesale; entries
// are cheap to rebuild and precise tracking of which filters a change
// affects costs more than it saves.
type Cache struct {
	mu            sync.RWMutex
	results       map[uint64][]*entity.Entity
	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

// NewCache builds an empty cache.
func NewCache() *Cache {
	return &Cache{results: make(map[uint64][]*entity.Entity)}
}

// Lookup returns the memoized result for the signature, if present.
func (c *Cache) Lookup(signature uint64) ([]*entity.Entity, bool) {
	c.mu.RLock()
	result, ok := c.results[signature]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return result, true
	}
	c.misses.Add(1)
	return nil, false
}

// Store memoizes a result under the signature.
func (c *Cache) Store(signature uint64, result []*entity.Entity) {
	c.mu.Lock()
	c.results[signature] = result
	c.mu.Unlock()
}

// Invalidate drops every entry. Called after any entity or component
// population change.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	if len(c.results) > 0 {
		c.results = make(map[uint64][]*entity.Entity)
		c.invalidations.Add(1)
	}
	c.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.results)
	c.mu.RUnlock()
	return CacheStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		Entries:       entries,
	}
}
