package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ikkim/gomarketplace-cart/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// redisCommands is the subset of *redis.Client the store needs.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each key as a plain redis string without expiry.
type RedisStore struct {
	client redisCommands
}

func NewRedisStore(client redisCommands) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		logger.Error("Failed to read key from Redis", err, map[string]interface{}{
			"key": key,
		})
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisStore) SetItem(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		logger.Error("Failed to write key to Redis", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) RemoveItem(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
