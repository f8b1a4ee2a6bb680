// Package lookup implements the Redis backend of the entity id lookup
package lookup

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"orderconsumer/internal/config"
	"time"
)

// A RedisStore reads fields of hashes stored under collection:key
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func hashKey(collection, key string) string {
	return fmt.Sprintf("%s:%s", collection, key)
}

// Lookup returns field of the hash collection:key
func (s *RedisStore) Lookup(ctx context.Context, collection, key, field string) (string, bool, error) {
	value, err := s.rdb.HGet(ctx, hashKey(collection, key), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("hget %s %s: %w", hashKey(collection, key), field, err)
	}
	return value, true, nil
}

// Upsert stores value as field of the hash collection:key
func (s *RedisStore) Upsert(ctx context.Context, collection, key, field, value string) error {
	return s.rdb.HSet(ctx, hashKey(collection, key), field, value).Err()
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
