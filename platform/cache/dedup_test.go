package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDedupStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisDedupStore(client, "followup:")
	ctx := context.Background()

	first, err := store.Claim(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, mr.Exists("followup:abc"))

	second, err := store.Claim(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	mr.FastForward(2 * time.Minute)
	again, err := store.Claim(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)

	require.NoError(t, store.Release(ctx, "abc"))
	assert.False(t, mr.Exists("followup:abc"))
}

func TestNewRedisClientFailsOnUnreachableServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(context.Background(), "redis://"+addr)
	require.Error(t, err)
}

func TestMemoryDedupStoreExpiry(t *testing.T) {
	store := NewMemoryDedupStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := store.Claim(ctx, "k", time.Second)
	assert.True(t, ok)
	ok, _ = store.Claim(ctx, "k", time.Second)
	assert.False(t, ok)

	now = now.Add(time.Second)
	ok, _ = store.Claim(ctx, "k", time.Second)
	assert.True(t, ok)

	require.NoError(t, store.Release(ctx, "k"))
	ok, _ = store.Claim(ctx, "k", time.Second)
	assert.True(t, ok)
}
