package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisLocalStore keeps the cache in Redis under a key prefix so several
// services can share one instance.
type RedisLocalStore struct {
	client *redis.Client
	prefix string
}

func NewRedisLocalStore(client *redis.Client, prefix string) *RedisLocalStore {
	return &RedisLocalStore{client: client, prefix: prefix}
}

func (s *RedisLocalStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisLocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisLocalStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

func (s *RedisLocalStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove cache key %s: %w", key, err)
	}
	return nil
}

func (s *RedisLocalStore) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return keys, nil
}
