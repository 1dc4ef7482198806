package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore shares idempotency records across instances. Drop-in
// replacement for MemoryStore when REDIS_ADDR is configured.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, prefix string, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb, ttl: ttl, prefix: prefix}, nil
}

// Seen implements Store via SETNX with TTL: the first writer records the
// key, every later caller within the TTL sees a duplicate.
func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	set, err := s.rdb.SetNX(ctx, fmt.Sprintf("%s:%s", s.prefix, key), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency check failed: %w", err)
	}
	return !set, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
