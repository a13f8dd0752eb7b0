package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "event:idempotency:"

// RedisIdempotencyStore tracks processed event IDs in Redis so that
// replayed deliveries are skipped across all running instances.
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection
// with a ping before returning the store.
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisIdempotencyStore{client: client}, nil
}

// MarkProcessed records an event ID with a TTL. SETNX makes the check and
// the write a single atomic operation, so exactly one caller wins a race.
// Returns true when the event was newly marked.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKeyPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed reports whether an event ID has already been recorded.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, idempotencyKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
