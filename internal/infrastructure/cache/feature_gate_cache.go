package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/echodesk/backend/internal/domain/billing"
)

const (
	gateKeyPrefix  = "feature:gate:"
	defaultGateTTL = 5 * time.Minute
)

// FeatureGateCache caches the set of feature keys a tenant's package
// grants. A miss means the caller must resolve features from the
// subscription and write them back.
type FeatureGateCache interface {
	// GetFeatures returns the cached keys and whether the entry exists.
	// An existing empty set is a valid cache hit.
	GetFeatures(ctx context.Context, tenantID uuid.UUID) ([]billing.FeatureKey, bool, error)
	SetFeatures(ctx context.Context, tenantID uuid.UUID, features []billing.FeatureKey) error
	// Invalidate drops a tenant's entry, called on package change,
	// renewal and suspension.
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// RedisFeatureGateCache implements FeatureGateCache on Redis so all
// instances see the same gate state.
type RedisFeatureGateCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// RedisFeatureGateCacheOption is a functional option for configuring the cache
type RedisFeatureGateCacheOption func(*RedisFeatureGateCache)

// WithGateTTL sets how long a tenant's entry lives before re-resolution.
func WithGateTTL(ttl time.Duration) RedisFeatureGateCacheOption {
	return func(c *RedisFeatureGateCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithGateLogger sets the logger for the cache
func WithGateLogger(logger *zap.Logger) RedisFeatureGateCacheOption {
	return func(c *RedisFeatureGateCache) {
		c.logger = logger
	}
}

// NewRedisFeatureGateCache creates a Redis-backed gate cache over an
// existing client.
func NewRedisFeatureGateCache(client *redis.Client, opts ...RedisFeatureGateCacheOption) *RedisFeatureGateCache {
	cache := &RedisFeatureGateCache{
		client: client,
		ttl:    defaultGateTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func gateKey(tenantID uuid.UUID) string {
	return gateKeyPrefix + tenantID.String()
}

// GetFeatures returns the cached feature keys for a tenant.
func (c *RedisFeatureGateCache) GetFeatures(ctx context.Context, tenantID uuid.UUID) ([]billing.FeatureKey, bool, error) {
	data, err := c.client.Get(ctx, gateKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("feature gate cache get: %w", err)
	}

	var features []billing.FeatureKey
	if err := json.Unmarshal(data, &features); err != nil {
		// corrupt entry: drop it and treat as a miss
		c.logger.Warn("Dropping corrupt feature gate entry",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		_ = c.client.Del(ctx, gateKey(tenantID)).Err()
		return nil, false, nil
	}
	return features, true, nil
}

// SetFeatures stores a tenant's feature keys with the configured TTL.
func (c *RedisFeatureGateCache) SetFeatures(ctx context.Context, tenantID uuid.UUID, features []billing.FeatureKey) error {
	if features == nil {
		features = []billing.FeatureKey{}
	}
	data, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("feature gate cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, gateKey(tenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("feature gate cache set: %w", err)
	}
	return nil
}

// Invalidate drops a tenant's entry and broadcasts the drop so every
// instance clears its local tier too.
func (c *RedisFeatureGateCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, gateKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("feature gate cache invalidate: %w", err)
	}
	if err := c.client.Publish(ctx, gateInvalidationChannel, tenantID.String()).Err(); err != nil {
		c.logger.Warn("Failed to broadcast feature gate invalidation",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
	return nil
}
