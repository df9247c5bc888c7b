package expr

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSize is how many results a Cache keeps.
const DefaultCacheSize = 100

type cached struct {
	src   string
	value float64
}

// Cache memoizes Evaluate. When full, the oldest result is evicted first.
// Failed evaluations are not cached.
type Cache struct {
	mu      sync.Mutex
	size    int
	entries map[uint64]cached
	order   []uint64
}

// NewCache returns a cache holding up to size results.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		size:    size,
		entries: make(map[uint64]cached, size),
	}
}

// Calculate returns the cached result for src, evaluating it on a miss.
func (c *Cache) Calculate(src string) (float64, error) {
	key := xxhash.Sum64String(src)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.src == src {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err := Evaluate(src)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.size {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = cached{src: src, value: v}
	return v, nil
}

// Len reports how many results are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every cached result.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.order = nil
}
