// Package cache holds the Redis-backed query cache used by the read-only API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quant-warehouse/config"
)

// ErrMiss is returned by Get when the key does not exist
var ErrMiss = errors.New("cache miss")

// RedisClient wraps redis.Client
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to Redis. It returns nil when no host is configured or the server
// cannot be reached; callers treat a nil client as "caching disabled".
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *RedisClient {
	if cfg.Host == "" {
		log.Info("Redis host not configured, query cache disabled")
		return nil
	}

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       0, // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Failed to connect to Redis, query cache disabled", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("Connected to Redis", zap.String("addr", addr))
	return &RedisClient{client: client}
}

// Set stores a value as JSON with expiration
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, jsonBytes, expiration).Err()
}

// Get decodes the JSON value stored at key into dest
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(val, dest)
}

// Incr atomically increments the integer at key and returns the new value
func (r *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if r == nil || r.client == nil {
		return 0, fmt.Errorf("redis client not initialized")
	}
	return r.client.Incr(ctx, key).Result()
}

// Ping checks the connection
func (r *RedisClient) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}
