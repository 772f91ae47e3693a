package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts failures in Redis so the lockout survives restarts and is
// shared across replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(identifier string) string {
	return "lockout:" + identifier
}

func (s *RedisStore) Incr(ctx context.Context, identifier string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key(identifier))
	pipe.ExpireNX(ctx, key(identifier), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr lockout: %w", err)
	}
	return incr.Val(), nil
}

func (s *RedisStore) Failures(ctx context.Context, identifier string) (int64, error) {
	count, err := s.client.Get(ctx, key(identifier)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get lockout: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Clear(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, key(identifier)).Err(); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}
