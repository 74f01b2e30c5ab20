package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON-encoded values in Redis so results are shared
// between API replicas.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache[int] = (*RedisCache[int])(nil)

func NewRedisCache[T any](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (r *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "Redis get failed", "component", "cache", "key", key, "error", err)
		}
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.WarnContext(ctx, "Discarding undecodable cache entry", "component", "cache", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (r *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.WarnContext(ctx, "Cache value not encodable", "component", "cache", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis set failed", "component", "cache", "key", key, "error", err)
	}
}

func (r *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		slog.WarnContext(ctx, "Redis delete failed", "component", "cache", "key", key, "error", err)
	}
}

// Tiered checks a fast local cache before a shared one and backfills the
// local cache on shared hits.
type Tiered[T any] struct {
	Local  Cache[T]
	Shared Cache[T]
}

func (t *Tiered[T]) Get(ctx context.Context, key string) (T, bool) {
	if v, ok := t.Local.Get(ctx, key); ok {
		return v, true
	}
	v, ok := t.Shared.Get(ctx, key)
	if ok {
		t.Local.Set(ctx, key, v)
	}
	return v, ok
}

func (t *Tiered[T]) Set(ctx context.Context, key string, data T) {
	t.Local.Set(ctx, key, data)
	t.Shared.Set(ctx, key, data)
}

func (t *Tiered[T]) Delete(ctx context.Context, key string) {
	t.Local.Delete(ctx, key)
	t.Shared.Delete(ctx, key)
}
