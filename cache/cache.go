// Package cache wraps the redis client shared by the entitlement, course and
// token caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning/config"
	"github.com/redis/go-redis/v9"
)

// Week is the expiry used for user and course snapshots.
const Week = 7 * 24 * time.Hour

var ErrMiss = errors.New("cache miss")

func Open(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func SetJSON(ctx context.Context, rdb redis.Cmdable, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	if err := rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value stored at key into dest. It returns ErrMiss when
// the key does not exist.
func GetJSON(ctx context.Context, rdb redis.Cmdable, key string, dest any) error {
	b, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", key, err)
	}

	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func Delete(ctx context.Context, rdb redis.Cmdable, key string) error {
	if err := rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Generation returns the counter stored at key, 0 when it was never bumped.
func Generation(ctx context.Context, rdb redis.Cmdable, key string) (int64, error) {
	n, err := rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", key, err)
	}
	return n, nil
}

// Bump increments the counter stored at key and returns its new value.
func Bump(ctx context.Context, rdb redis.Cmdable, key string) (int64, error) {
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", key, err)
	}
	return n, nil
}
