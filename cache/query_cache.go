package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	keyPrefix  = "qw"
	versionKey = keyPrefix + ":snapshot"
)

// store is the subset of RedisClient the query cache needs
type store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// QueryCache caches API query results per warehouse snapshot. Every committed pipeline run bumps
// the snapshot version, so entries written against an older snapshot are never read again and
// expire on their TTL. A nil QueryCache, or one without a client, never hits.
type QueryCache struct {
	store store
	ttl   time.Duration
}

// NewQueryCache creates a query cache instance
func NewQueryCache(redis *RedisClient, ttl time.Duration) *QueryCache {
	c := &QueryCache{ttl: ttl}
	if redis != nil {
		c.store = redis
	}
	return c
}

// Enabled reports whether a Redis client backs the cache
func (c *QueryCache) Enabled() bool {
	return c != nil && c.store != nil
}

// Entry is one query pinned to the snapshot that was current when it was resolved. Reading and
// writing through the same Entry keeps a result loaded before a reload out of the next snapshot.
type Entry struct {
	cache *QueryCache
	key   string
}

// Resolve pins query to the current snapshot. It returns nil when the cache is disabled or the
// snapshot version cannot be read; a nil Entry never hits and ignores writes.
func (c *QueryCache) Resolve(ctx context.Context, query string) *Entry {
	if !c.Enabled() {
		return nil
	}
	var version int64
	if err := c.store.Get(ctx, versionKey, &version); err != nil && !errors.Is(err, ErrMiss) {
		return nil
	}
	return &Entry{cache: c, key: fmt.Sprintf("%s:v%d:%s", keyPrefix, version, query)}
}

// Key returns the versioned Redis key
func (e *Entry) Key() string {
	if e == nil {
		return ""
	}
	return e.key
}

// Get loads the cached result into dest. It returns false on a miss or any error.
func (e *Entry) Get(ctx context.Context, dest interface{}) bool {
	if e == nil {
		return false
	}
	return e.cache.store.Get(ctx, e.key, dest) == nil
}

// Set caches value under the snapshot the entry was resolved against
func (e *Entry) Set(ctx context.Context, value interface{}) error {
	if e == nil {
		return nil
	}
	return e.cache.store.Set(ctx, e.key, value, e.cache.ttl)
}

// Invalidate starts a new snapshot
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if _, err := c.store.Incr(ctx, versionKey); err != nil {
		return fmt.Errorf("invalidate query cache: %w", err)
	}
	return nil
}

// QueryKey builds a cache key from an endpoint name and its parameters
func QueryKey(endpoint string, params ...interface{}) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, endpoint)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ":")
}
