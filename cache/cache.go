// Package cache provides an in-process TTL cache with per-entry expiry. The
// auth core memoizes permission and role lookups in it under the reserved
// key prefixes "permissions:" and "role:".
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps a go-cache instance. Entries carry their own expiry; expired
// entries are never returned. Safe for concurrent use.
type Cache struct {
	mem *gocache.Cache
}

func New() *Cache {
	return &Cache{
		mem: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// GetOrCreate returns a live entry for key, or invokes factory, stores the
// result with now+ttl and returns it. Concurrent misses may race the
// factory; the last writer wins and the cache is never left torn. A factory
// error is returned without caching anything.
func GetOrCreate[T any](c *Cache, key string, ttl time.Duration, factory func() (T, error)) (T, error) {
	if v, ok := c.mem.Get(key); ok {
		if cached, ok := v.(T); ok {
			return cached, nil
		}
	}

	value, err := factory()
	if err != nil {
		var zero T
		return zero, err
	}
	c.mem.Set(key, value, ttl)
	return value, nil
}

// Remove drops key. Removing an absent key is a no-op; a subsequent
// GetOrCreate always recomputes.
func (c *Cache) Remove(key string) {
	c.mem.Delete(key)
}

// Has reports whether key holds an unexpired entry.
func (c *Cache) Has(key string) bool {
	_, ok := c.mem.Get(key)
	return ok
}

func (c *Cache) Flush() {
	c.mem.Flush()
}
