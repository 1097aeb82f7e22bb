// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client, "t:", zerolog.Nop())
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	ctx := context.Background()

	cache.Set(ctx, "doc", "ext-1", 5*time.Minute)

	val, found := cache.Get(ctx, "doc")
	require.True(t, found)
	assert.Equal(t, "ext-1", val)
	assert.True(t, mr.Exists("t:doc"), "keys are namespaced")

	_, found = cache.Get(ctx, "missing")
	assert.False(t, found)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestRedisCache_GetMany(t *testing.T) {
	_, cache := setupMiniRedis(t)
	ctx := context.Background()

	cache.Set(ctx, "a", "1", 0)
	cache.Set(ctx, "c", "3", 0)

	got := cache.GetMany(ctx, []string{"a", "b", "c"})
	assert.Equal(t, map[string]string{"a": "1", "c": "3"}, got)
	assert.Empty(t, cache.GetMany(ctx, nil))
}

func TestRedisCache_Expiration(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	ctx := context.Background()

	cache.Set(ctx, "k", "v", time.Minute)
	mr.FastForward(2 * time.Minute)

	_, found := cache.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCache_DegradesToMiss(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	ctx := context.Background()

	cache.Set(ctx, "k", "v", 0)
	mr.Close()

	_, found := cache.Get(ctx, "k")
	assert.False(t, found)
	assert.Empty(t, cache.GetMany(ctx, []string{"k"}))
	assert.Error(t, cache.HealthCheck(ctx))
}
