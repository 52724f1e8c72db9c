package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"forumpipe/internal/constants"
	"forumpipe/pkg/metrics"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PostKey is the cache key of a post snapshot.
func PostKey(postID int64) string {
	return fmt.Sprintf("%s%d", constants.CacheKeyPrefixPost, postID)
}

type RedisStore struct {
	client redis.Cmdable
	name   string
}

func NewRedisStore(client redis.Cmdable, name string) *RedisStore {
	return &RedisStore{client: client, name: name}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest(s.name, "miss")
		return nil, ErrCacheMiss
	}
	if err != nil {
		metrics.IncCacheRequest(s.name, "error")
		return nil, fmt.Errorf("redis GET %s failed: %w", key, err)
	}
	metrics.IncCacheRequest(s.name, "hit")
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s failed: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s failed: %w", key, err)
	}
	return nil
}
