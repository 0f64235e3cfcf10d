// Package cache provides Redis read-through caching for the catalog.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "nursery:"
	categoriesKey = keyPrefix + "categories"

	// tombstone replaces a product entry whose stock or fields just changed.
	// Read-through fills use SETNX, so a fill that read the old row before
	// the change cannot land while the tombstone lives.
	tombstone    = "-"
	tombstoneTTL = 5 * time.Second
)

func productKey(id string) string { return keyPrefix + "product:" + id }

// KV is the subset of the Redis client used by the cache. *redis.Client
// satisfies it.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return rdb, nil
}

// load decodes the cached value into dst. Misses and cache errors both
// report false; errors are logged.
func load(ctx context.Context, kv KV, key string, dst any) bool {
	raw, err := kv.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zctx.From(ctx).Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if string(raw) == tombstone {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		zctx.From(ctx).Warn("Cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func store(ctx context.Context, kv KV, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := kv.Set(ctx, key, raw, ttl).Err(); err != nil {
		zctx.From(ctx).Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// fill stores v only when key is absent, so it never overwrites a
// tombstone.
func fill(ctx context.Context, kv KV, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := kv.SetNX(ctx, key, raw, ttl).Err(); err != nil {
		zctx.From(ctx).Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// bury replaces key with a short-lived tombstone.
func bury(ctx context.Context, kv KV, key string) {
	if err := kv.Set(ctx, key, tombstone, tombstoneTTL).Err(); err != nil {
		zctx.From(ctx).Warn("Cache eviction failed", zap.String("key", key), zap.Error(err))
	}
}

func evict(ctx context.Context, kv KV, keys ...string) {
	if err := kv.Del(ctx, keys...).Err(); err != nil {
		zctx.From(ctx).Warn("Cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
