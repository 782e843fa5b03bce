package imagegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache keeps rendered animations on disk, keyed by the radar base time,
// so repeated renders of the same nowcast generation are skipped.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// NewCache creates the cache directory. Entries older than maxAge are
// ignored; the nowcast is regenerated every five minutes.
func NewCache(dir string, maxAge time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create animation cache: %w", err)
	}
	return &Cache{dir: dir, maxAge: maxAge}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("nowcast_%s.gif", key))
}

// Get returns the cached animation if it exists and is not stale.
func (c *Cache) Get(key string) ([]byte, bool) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(key string, data []byte) error {
	return os.WriteFile(c.path(key), data, 0o644)
}

// List returns the cached keys.
func (c *Cache) List() []string {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "nowcast_") || filepath.Ext(name) != ".gif" {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, "nowcast_"), ".gif"))
	}
	return keys
}

// Prune removes every entry except keep.
func (c *Cache) Prune(keep string) error {
	for _, k := range c.List() {
		if k == keep {
			continue
		}
		if err := os.Remove(c.path(k)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune %s: %w", k, err)
		}
	}
	return nil
}
