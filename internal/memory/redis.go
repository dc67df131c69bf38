package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps memory entries in Redis so they survive process restarts.
// Entries are JSON values under "concierge:memory:{namespace}:{key}".
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) (any, bool, error) {
	data, err := s.client.Get(ctx, s.redisKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s/%s: %w", namespace, key, err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("decode memory entry %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Put(ctx context.Context, namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode memory entry %s/%s: %w", namespace, key, err)
	}

	// No expiry: memory entries persist until overwritten.
	if err := s.client.Set(ctx, s.redisKey(namespace, key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *RedisStore) redisKey(namespace, key string) string {
	return "concierge:memory:" + namespace + ":" + key
}
