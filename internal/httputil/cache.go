package httputil

import (
	"sync"

	"github.com/lox/jmaweather/internal/metrics"
)

// Cache holds fetched bodies for the lifetime of one run. There is no
// eviction; a run touches a few dozen documents at most.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// GetOrFetch returns the cached body for key, calling load on a miss.
// Failed loads are not cached.
func (c *Cache) GetOrFetch(key string, load func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(key); ok {
		metrics.FetchCacheTotal.WithLabelValues("hit").Inc()
		return data, nil
	}
	metrics.FetchCacheTotal.WithLabelValues("miss").Inc()

	data, err := load()
	if err != nil {
		return nil, err
	}
	c.Set(key, data)
	return data, nil
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	return data, ok
}

func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
}
