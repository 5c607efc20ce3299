package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quant-warehouse/config"
)

func TestQueryKey(t *testing.T) {
	assert.Equal(t, "symbols", QueryKey("symbols"))
	assert.Equal(t, "bars:AAPL:100", QueryKey("bars", "AAPL", 100))
	assert.Equal(t, "correlations::0.5:20", QueryKey("correlations", "", 0.5, 20))
}

func TestQueryCache_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()

	for name, c := range map[string]*QueryCache{
		"nil cache":     nil,
		"no client set": NewQueryCache(nil, time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Enabled())

			entry := c.Resolve(ctx, "symbols")
			assert.Nil(t, entry)

			var dest []string
			assert.False(t, entry.Get(ctx, &dest))
			assert.NoError(t, entry.Set(ctx, []string{"AAPL"}))
			assert.NoError(t, c.Invalidate(ctx))
			assert.Nil(t, dest)
		})
	}
}

func TestNewRedisClient_NoHost(t *testing.T) {
	client := NewRedisClient(context.Background(), config.RedisConfig{}, zap.NewNop())
	assert.Nil(t, client)
	assert.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()))
}

// memStore is an in-memory stand-in for Redis with the same JSON encoding
type memStore struct {
	values  map[string][]byte
	failGet error
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) error {
	if m.failGet != nil {
		return m.failGet
	}
	v, ok := m.values[key]
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(v, dest)
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = b
	return nil
}

func (m *memStore) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	if v, ok := m.values[key]; ok {
		if err := json.Unmarshal(v, &n); err != nil {
			return 0, err
		}
	}
	n++
	return n, m.Set(ctx, key, n, 0)
}

func TestQueryCache_HitWithinSnapshot(t *testing.T) {
	ctx := context.Background()
	c := &QueryCache{store: newMemStore(), ttl: time.Minute}

	first := c.Resolve(ctx, "symbols")
	require.NotNil(t, first)
	assert.Equal(t, "qw:v0:symbols", first.Key())
	require.NoError(t, first.Set(ctx, []string{"AAPL"}))

	var got []string
	assert.True(t, c.Resolve(ctx, "symbols").Get(ctx, &got))
	assert.Equal(t, []string{"AAPL"}, got)

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, "qw:v1:symbols", c.Resolve(ctx, "symbols").Key())
	assert.False(t, c.Resolve(ctx, "symbols").Get(ctx, &got))
}

func TestQueryCache_ResultLoadedAcrossReloadIsNotServed(t *testing.T) {
	ctx := context.Background()
	c := &QueryCache{store: newMemStore(), ttl: time.Minute}

	// A request misses and loads from the old snapshot while a run commits
	entry := c.Resolve(ctx, "latest")
	var got string
	require.False(t, entry.Get(ctx, &got))
	loaded := "old"
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, entry.Set(ctx, loaded))

	assert.False(t, c.Resolve(ctx, "latest").Get(ctx, &got), "stale result must not be served after a reload")

	next := c.Resolve(ctx, "latest")
	require.NoError(t, next.Set(ctx, "new"))
	require.True(t, c.Resolve(ctx, "latest").Get(ctx, &got))
	assert.Equal(t, "new", got)
}

func TestQueryCache_UnreadableSnapshotBypassesCache(t *testing.T) {
	ctx := context.Background()
	mem := newMemStore()
	mem.failGet = errors.New("connection refused")
	c := &QueryCache{store: mem, ttl: time.Minute}

	entry := c.Resolve(ctx, "symbols")
	assert.Nil(t, entry)
	assert.NoError(t, entry.Set(ctx, []string{"AAPL"}))
	assert.Empty(t, mem.values)
}
