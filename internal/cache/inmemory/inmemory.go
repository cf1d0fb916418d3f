// Package inmemory is a map-backed cache.Cache used by tests and by the
// memdb-backed dev profile, where no Redis is available.
package inmemory

import (
	"context"
	"path"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

// Cache is a mutex-protected map implementing cache.Cache.
type Cache struct {
	mu   sync.Mutex
	data map[string]entry
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{data: make(map[string]entry)}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(e.expires) {
		delete(c.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// DeletePattern removes every key matching a glob of the shape used by
// spec.md §4.4 (e.g. "check:documents:doc1*", "check:*@user:alice"). Go's
// path.Match supports the single '*' wildcard these patterns need.
func (c *Cache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.data {
		if matched, _ := path.Match(pattern, key); matched {
			delete(c.data, key)
		}
	}
	return nil
}

func (c *Cache) Ping(_ context.Context) error {
	return nil
}
