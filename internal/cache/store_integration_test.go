//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
	"forumpipe/internal/testinfra"
)

func TestRedisStore(t *testing.T) {
	client := testinfra.Redis(t)
	store := NewRedisStore(client, "post")
	ctx := context.Background()
	key := PostKey(7)

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, store.Set(ctx, key, []byte(`{"id":7}`), time.Minute))

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, string(value))

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCircuitBreakerStore_OverRedis(t *testing.T) {
	client := testinfra.Redis(t)
	store := NewCircuitBreakerStore(NewRedisStore(client, "post"), "post-cache", config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Timeout:      time.Second,
		FailureRatio: 0.5,
		MinRequests:  2,
	})
	ctx := context.Background()

	// Misses must not count as failures.
	for i := 0; i < 5; i++ {
		_, err := store.Get(ctx, PostKey(int64(i)))
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, "closed", store.State())
}
