// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisOpTimeout = 2 * time.Second

// RedisCache is a Redis-backed implementation of Cache. Keys are namespaced
// with a prefix because the Redis instance is shared with the store and bus.
// Failures degrade to misses; the cache never fails a lookup.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	logger zerolog.Logger
	stats  counters
}

// NewRedisCache wraps an existing client. Closing the cache does not close
// the client.
func NewRedisCache(client redis.UniversalClient, prefix string, logger zerolog.Logger) *RedisCache {
	if prefix == "" {
		prefix = "statusfeed:cache:"
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

func (c *RedisCache) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, redisOpTimeout)
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Add(1)
		return "", false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		c.stats.misses.Add(1)
		return "", false
	}
	c.stats.hits.Add(1)
	return val, true
}

func (c *RedisCache) GetMany(ctx context.Context, keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out
	}
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	vals, err := c.client.MGet(ctx, full...).Result()
	if err != nil {
		c.logger.Warn().Err(err).Int("keys", len(keys)).Msg("redis mget failed")
		c.stats.misses.Add(int64(len(keys)))
		return out
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			c.stats.misses.Add(1)
			continue
		}
		c.stats.hits.Add(1)
		out[keys[i]] = s
	}
	return out
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return
	}
	c.stats.sets.Add(1)
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

// Stats reports counters. CurrentSize is not tracked for Redis.
func (c *RedisCache) Stats() Stats {
	return c.stats.snapshot(0)
}

func (c *RedisCache) Close() error { return nil }

// HealthCheck checks if Redis is available.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

var _ Cache = (*RedisCache)(nil)
