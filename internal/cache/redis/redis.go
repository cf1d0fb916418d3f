// Package redis implements cache.Cache over go-redis/v9, the production
// result-cache backend (SPEC_FULL.md §5.4).
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	errUnableToGet    = "unable to read cache entry: %w"
	errUnableToSet    = "unable to write cache entry: %w"
	errUnableToDelete = "unable to delete cache entry: %w"
	errUnableToScan   = "unable to scan cache keys: %w"

	scanBatchSize = 200
)

// Cache wraps a *redis.Client. A nil error from Get with ok=false means a
// clean miss; callers never need to distinguish "missing" from "expired".
type Cache struct {
	client *goredis.Client
}

// Connect dials Redis at addr (host:port) and verifies the connection with
// a Ping, mirroring the connect-then-probe pattern other backends in this
// repo use for Scylla and memdb startup.
func Connect(ctx context.Context, addr string) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Msg("connected to redis")

	return &Cache{client: client}, nil
}

// New wraps an already-constructed client, for tests that run against
// miniredis or a shared fixture.
func New(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf(errUnableToGet, err)
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf(errUnableToSet, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf(errUnableToDelete, err)
	}
	return nil
}

// DeletePattern invalidates every key matching a glob by SCANning in
// batches rather than issuing a blocking KEYS, so invalidation on a hot
// namespace never stalls other clients (SPEC_FULL.md §5.4).
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf(errUnableToScan, err)
		}

		if len(keys) > 0 {
			if err := c.client.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf(errUnableToDelete, err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
