// Package cache provides an explicit read cache for event listings. The
// interface is deliberately small — get, set with TTL, delete — so the
// handlers stay oblivious to the backing store and a nil cache simply
// disables caching.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys used by the event handlers. Mutating an event deletes both its
// own entry and the upcoming list.
const (
	KeyUpcomingEvents = "events:upcoming"
)

// EventKey returns the cache key for a single event.
func EventKey(id uint64) string {
	return "event:" + strconv.FormatUint(id, 10)
}

// Cache is a byte-blob cache with per-entry TTL. Implementations must
// treat every failure as a miss; the cache is an optimization, never a
// source of truth.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string)
}

// RedisCache implements Cache on top of a redis client. All errors are
// swallowed: a broken cache degrades to uncached reads.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache returns a RedisCache namespaced under the given prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "cache"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(k string) string { return c.prefix + ":" + k }

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	_ = c.client.Del(ctx, prefixed...).Err()
}
