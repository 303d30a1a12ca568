// Package cache wraps Redis behind a degrade-gracefully key-value facade.
// No operation ever surfaces a transport error to the caller: a broken or
// unreachable Redis turns every read into a miss and every write into a
// no-op, and the failure is logged. Callers must stay correct when the
// cache silently stops caching.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb *redis.Client
	log *slog.Logger
}

func New(rdb *redis.Client, log *slog.Logger) *Cache {
	return &Cache{rdb: rdb, log: log}
}

// Get unmarshals the value stored under key into dest and reports whether
// the key was present. Transport and decode failures count as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Error("cache get failed, treating as miss", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		c.log.Error("cache entry undecodable, treating as miss", "key", key, "err", err)
		return false
	}
	return true
}

// Set stores value under key with the given TTL. Failures are logged and
// swallowed; the entry simply does not get cached.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	b, err := json.Marshal(value)
	if err != nil {
		c.log.Error("cache set: marshal failed", "key", key, "err", err)
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		c.log.Error("cache set failed", "key", key, "err", err)
	}
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Error("cache delete failed", "key", key, "err", err)
	}
}

// DeletePattern removes every key matching the glob pattern, e.g.
// "todos:list:*". Uses SCAN rather than KEYS to stay incremental.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Error("cache pattern delete failed", "pattern", pattern, "key", iter.Val(), "err", err)
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("cache pattern scan failed", "pattern", pattern, "err", err)
	}
}

// Exists reports whether key is present. Transport failures read as absent.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.log.Error("cache exists failed", "key", key, "err", err)
		return false
	}
	return n == 1
}

// Ping probes the underlying store. This is the one operation that does
// return an error; health checks need to see the outage the facade hides.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
