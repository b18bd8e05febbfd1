package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisIdempotencyStore(client, "test:idem:")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("claim sets a prefixed key with ttl", func(t *testing.T) {
		store, mr := newRedisStore(t)
		ok, err := store.Claim(ctx, "req-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.True(t, mr.Exists("test:idem:req-1"))
		assert.Equal(t, time.Hour, mr.TTL("test:idem:req-1"))

		ok, err = store.Claim(ctx, "req-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("claim expires", func(t *testing.T) {
		store, mr := newRedisStore(t)
		_, _ = store.Claim(ctx, "req-2", time.Minute)
		mr.FastForward(2 * time.Minute)

		claimed, err := store.IsClaimed(ctx, "req-2")
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("release", func(t *testing.T) {
		store, _ := newRedisStore(t)
		_, _ = store.Claim(ctx, "req-3", time.Hour)
		require.NoError(t, store.Release(ctx, "req-3"))

		claimed, err := store.IsClaimed(ctx, "req-3")
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("redis errors are wrapped", func(t *testing.T) {
		store, mr := newRedisStore(t)
		mr.SetError("LOADING")
		_, err := store.Claim(ctx, "req-4", time.Hour)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to claim idempotency key")
	})
}

func TestIdempotencyStoreFactory(t *testing.T) {
	ctx := context.Background()
	idem := config.IdempotencyConfig{TTL: time.Hour, KeyPrefix: "idempotency:"}

	t.Run("redis disabled uses memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.RedisConfig{}, idem).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("reachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr)}
		store, err := NewIdempotencyStoreFactory(cfg, idem).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		require.IsType(t, &RedisIdempotencyStore{}, store)

		_, err = store.Claim(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.True(t, mr.Exists("idempotency:k"))
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr)}
		mr.Close()

		_, err := NewIdempotencyStoreFactory(cfg, idem, WithInMemoryFallback(false)).CreateStore(ctx)
		assert.Error(t, err)

		store, err := NewIdempotencyStoreFactory(cfg, idem).CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})
}

func portOf(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(mr.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
