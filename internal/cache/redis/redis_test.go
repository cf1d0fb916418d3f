package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-authz/sentinel/internal/cache/redis"
)

func newTestCache(t *testing.T) *redis.Cache {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return redis.New(client)
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeletePattern(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "check:documents:doc1#viewer@user:alice", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "check:documents:doc1#editor@user:bob", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "check:documents:doc2#viewer@user:alice", "v", time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "check:documents:doc1*"))

	_, ok, _ := c.Get(ctx, "check:documents:doc1#viewer@user:alice")
	require.False(t, ok)
	_, ok, _ = c.Get(ctx, "check:documents:doc1#editor@user:bob")
	require.False(t, ok)
	_, ok, _ = c.Get(ctx, "check:documents:doc2#viewer@user:alice")
	require.True(t, ok)
}

func TestPing(t *testing.T) {
	require.NoError(t, newTestCache(t).Ping(context.Background()))
}
