package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "compliance:event:"

const (
	stateInProgress = "in_progress"
	stateComplete   = "complete"
)

// RedisStore backs the idempotency guard with Redis SET NX, which is atomic
// across all engine instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed idempotency store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, keyPrefix+key, stateInProgress, ttl).Result()
}

func (s *RedisStore) MarkComplete(ctx context.Context, key string, retention time.Duration) error {
	return s.client.Set(ctx, keyPrefix+key, stateComplete, retention).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
