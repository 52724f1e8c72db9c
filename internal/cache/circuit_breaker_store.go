package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forumpipe/internal/config"
	"forumpipe/pkg/circuitbreaker"
)

// CircuitBreakerStore stops calling a failing cache for a while. While open every call fails fast,
// which callers treat the same as any other cache error.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(store Store, name string, cfg config.CircuitBreakerConfig) *CircuitBreakerStore {
	if !cfg.Enabled {
		return &CircuitBreakerStore{store: store}
	}

	cbConfig := circuitbreaker.FromConfig(name, cfg)
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrCacheMiss)
	}

	return &CircuitBreakerStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(cbConfig),
	}
}

func (s *CircuitBreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.cb == nil {
		return s.store.Get(ctx, key)
	}

	result, err := s.cb.Execute(ctx, func() (interface{}, error) {
		return s.store.Get(ctx, key)
	})
	if err != nil {
		return nil, s.wrap(err)
	}

	value, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("cache returned invalid result type")
	}
	return value, nil
}

func (s *CircuitBreakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.cb == nil {
		return s.store.Set(ctx, key, value, ttl)
	}

	_, err := s.cb.Execute(ctx, func() (interface{}, error) {
		return nil, s.store.Set(ctx, key, value, ttl)
	})
	return s.wrap(err)
}

func (s *CircuitBreakerStore) Delete(ctx context.Context, key string) error {
	if s.cb == nil {
		return s.store.Delete(ctx, key)
	}

	_, err := s.cb.Execute(ctx, func() (interface{}, error) {
		return nil, s.store.Delete(ctx, key)
	})
	return s.wrap(err)
}

func (s *CircuitBreakerStore) wrap(err error) error {
	if err == nil || errors.Is(err, ErrCacheMiss) {
		return err
	}
	if s.cb.IsOpen() {
		return fmt.Errorf("circuit breaker is open for %s: %w", s.cb.Name(), err)
	}
	return err
}

func (s *CircuitBreakerStore) State() string {
	if s.cb == nil {
		return "disabled"
	}
	return s.cb.State().String()
}
