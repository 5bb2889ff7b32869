package cache

import (
	"context"
	"sync"
	"time"
)

// TTLCache is a read-mostly cache with time-based expiry, shared by
// reference among adapter instances that need the same lookup data
// (e.g. the air-quality station list). Under a cold-cache race at most
// one redundant load happens; entries are swapped whole, never mutated
// in place.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

func New(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Since(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: time.Now()}
}

// GetOrLoad returns the cached value or runs loader to refresh it. The
// loader runs outside the lock, so two goroutines racing on a cold key
// may both load; the second Set wins and both see a valid value.
func (c *TTLCache) GetOrLoad(ctx context.Context, key string, loader func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
