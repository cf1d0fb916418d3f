package inmemory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-authz/sentinel/internal/cache/inmemory"
)

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := inmemory.New()

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

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := inmemory.New()

	require.NoError(t, c.Set(ctx, "k", "v", -time.Second))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeletePatternObjectGlob(t *testing.T) {
	ctx := context.Background()
	c := inmemory.New()

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

func TestDeletePatternUserGlob(t *testing.T) {
	ctx := context.Background()
	c := inmemory.New()

	require.NoError(t, c.Set(ctx, "check:documents:doc1#viewer@user:alice", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "check:teams:t1#member@user:alice", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "check:documents:doc1#viewer@user:bob", "v", time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "check:*@user:alice"))

	_, ok, _ := c.Get(ctx, "check:documents:doc1#viewer@user:alice")
	require.False(t, ok)
	_, ok, _ = c.Get(ctx, "check:teams:t1#member@user:alice")
	require.False(t, ok)
	_, ok, _ = c.Get(ctx, "check:documents:doc1#viewer@user:bob")
	require.True(t, ok)
}

func TestPing(t *testing.T) {
	require.NoError(t, inmemory.New().Ping(context.Background()))
}
