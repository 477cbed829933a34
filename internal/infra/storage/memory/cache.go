package memory

import (
	"context"
	"sync"
	"time"

	"hotelres/internal/app/middleware"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a process-local TTL cache for query results.
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheEntry
	now   func() time.Time
}

func NewCache() *Cache {
	return &Cache{items: make(map[string]cacheEntry), now: time.Now}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry{value: append([]byte(nil), value...), expiresAt: c.now().Add(ttl)}
	return nil
}

var _ middleware.Cache = (*Cache)(nil)
