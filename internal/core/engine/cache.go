package engine

import (
	"sync"
	"time"
)

// DefaultCacheTTL is the freshness window used when a cache is built with a
// non-positive TTL.
const DefaultCacheTTL = 5 * time.Minute

// Cache stores values under a three-tier freshness model.
//
// An entry is fresh while its age is below TTL, stale until twice the TTL and
// logically absent afterwards. Expired entries are evicted when read or when
// Cleanup runs; nothing sweeps in the background.
type Cache[T any] struct {
	TTL   time.Duration
	Clock func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry[T]
	// generation advances on every invalidation or in-place update.
	generation uint64
}

type cacheEntry[T any] struct {
	value      T
	insertedAt time.Time
}

// Lookup is a cache hit.
type Lookup[T any] struct {
	Data    T             `json:"data"`
	IsStale bool          `json:"is_stale"`
	Age     time.Duration `json:"age"`
}

// Stats is a read-only classification of all stored entries.
type Stats struct {
	Total   int `json:"total"`
	Fresh   int `json:"fresh"`
	Stale   int `json:"stale"`
	Expired int `json:"expired"`
}

// NewCache creates a cache with the given freshness TTL. A TTL of zero or
// less is replaced by DefaultCacheTTL; callers wanting a different fallback
// resolve it before calling.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache[T]{
		TTL:     ttl,
		entries: make(map[string]cacheEntry[T]),
	}
}

// Get returns the entry for key. Entries at or past twice the TTL are evicted
// and reported as a miss.
func (c *Cache[T]) Get(key string) (Lookup[T], bool) {
	if c == nil {
		return Lookup[T]{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Lookup[T]{}, false
	}

	age := c.now().Sub(entry.insertedAt)
	if age >= 2*c.TTL {
		delete(c.entries, key)
		return Lookup[T]{}, false
	}

	return Lookup[T]{
		Data:    entry.value,
		IsStale: age >= c.TTL,
		Age:     age,
	}, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[T]) Set(key string, value T) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[string]cacheEntry[T])
	}
	c.entries[key] = cacheEntry[T]{value: value, insertedAt: c.now()}
}

// Generation identifies the cache contents between invalidations. Pair it
// with SetIfGeneration to drop values produced before an invalidation.
func (c *Cache[T]) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// SetIfGeneration stores value only when no invalidation or update happened
// since gen was read. It reports whether the value was stored.
func (c *Cache[T]) SetIfGeneration(key string, value T, gen uint64) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return false
	}
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry[T])
	}
	c.entries[key] = cacheEntry[T]{value: value, insertedAt: c.now()}
	return true
}

// Update rewrites stored values in place. fn returns the new value and
// whether it changed; entry ages are kept. It returns the number of changed
// entries.
func (c *Cache[T]) Update(fn func(key string, value T) (T, bool)) int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	changed := 0
	for key, entry := range c.entries {
		value, ok := fn(key, entry.value)
		if !ok {
			continue
		}
		entry.value = value
		c.entries[key] = entry
		changed++
	}
	c.generation++
	return changed
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.generation++
}

// Clear removes every entry.
func (c *Cache[T]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry[T])
	c.generation++
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache[T]) Cleanup() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) >= 2*c.TTL {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Stats classifies all entries without evicting any.
func (c *Cache[T]) Stats() Stats {
	if c == nil {
		return Stats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{Total: len(c.entries)}
	for _, entry := range c.entries {
		age := now.Sub(entry.insertedAt)
		switch {
		case age < c.TTL:
			stats.Fresh++
		case age < 2*c.TTL:
			stats.Stale++
		default:
			stats.Expired++
		}
	}
	return stats
}

func (c *Cache[T]) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
