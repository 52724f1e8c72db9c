package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
)

type stubStore struct {
	getValue []byte
	err      error
	calls    int
}

func (s *stubStore) Get(context.Context, string) ([]byte, error) {
	s.calls++
	return s.getValue, s.err
}

func (s *stubStore) Set(context.Context, string, []byte, time.Duration) error {
	s.calls++
	return s.err
}

func (s *stubStore) Delete(context.Context, string) error {
	s.calls++
	return s.err
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
}

func TestPostKey(t *testing.T) {
	assert.Equal(t, "post:7", PostKey(7))
}

func TestCircuitBreakerStore_Disabled(t *testing.T) {
	inner := &stubStore{getValue: []byte("v")}
	s := NewCircuitBreakerStore(inner, "posts", config.CircuitBreakerConfig{})

	v, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, "disabled", s.State())
}

func TestCircuitBreakerStore_MissesDoNotTrip(t *testing.T) {
	inner := &stubStore{err: ErrCacheMiss}
	s := NewCircuitBreakerStore(inner, "posts-miss", breakerConfig())

	for i := 0; i < 5; i++ {
		_, err := s.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, gobreaker.StateClosed.String(), s.State())
	assert.Equal(t, 5, inner.calls)
}

func TestCircuitBreakerStore_OpensOnFailures(t *testing.T) {
	inner := &stubStore{err: errors.New("connection refused")}
	s := NewCircuitBreakerStore(inner, "posts-fail", breakerConfig())

	for i := 0; i < 2; i++ {
		assert.Error(t, s.Delete(context.Background(), "k"))
	}
	assert.Equal(t, gobreaker.StateOpen.String(), s.State())

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the store")
}
