package props

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// RedisStore backs the PropertyStore contract with a Redis database. Every
// property lives as a plain string key; enumeration uses SCAN so a sweep does
// not block the server.
type RedisStore struct {
	client        *redis.Client
	maxValueBytes int
}

type RedisStoreOptions struct {
	Addr     string
	Password string
	DB       int

	// MaxValueBytes caps stored value size; 0 disables the client-side check.
	MaxValueBytes int
}

func NewRedisStore(opts RedisStoreOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &RedisStore{client: client, maxValueBytes: opts.MaxValueBytes}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.WrapError(domain.KindPersistence, fmt.Sprintf("failed to get %q", key), err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if s.maxValueBytes > 0 && len(value) > s.maxValueBytes {
		return domain.Ef(domain.KindValueTooLarge, "value for %q exceeds %d bytes", key, s.maxValueBytes)
	}

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return domain.WrapError(domain.KindPersistence, fmt.Sprintf("failed to set %q", key), err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return domain.WrapError(domain.KindPersistence, fmt.Sprintf("failed to delete %q", key), err)
	}
	return nil
}

func (s *RedisStore) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string

	iter := s.client.Scan(ctx, 0, "*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, domain.WrapError(domain.KindPersistence, "failed to scan keys", err)
	}

	return keys, nil
}

// Ping verifies store connectivity, used by the status CLI command.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.WrapError(domain.KindPersistence, "redis ping failed", err)
	}
	return nil
}
