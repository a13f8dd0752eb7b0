package cache

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/echodesk/backend/internal/domain/billing"
)

const gateInvalidationChannel = "feature:gate:invalidate"

// TieredFeatureGateCache layers a local map (L1) over Redis (L2).
// Reads fall through L1 -> L2 -> miss; writes go to both tiers.
// Invalidations are broadcast over Redis Pub/Sub so every instance
// drops its L1 entry.
type TieredFeatureGateCache struct {
	l1     *InMemoryFeatureGateCache
	l2     *RedisFeatureGateCache
	sub    *redis.Client
	logger *zap.Logger

	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// NewTieredFeatureGateCache creates the two-tier gate cache. sub is the
// client used for the invalidation subscription; it may be the same
// client the L2 cache uses.
func NewTieredFeatureGateCache(l1 *InMemoryFeatureGateCache, l2 *RedisFeatureGateCache, sub *redis.Client, logger *zap.Logger) *TieredFeatureGateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredFeatureGateCache{
		l1:     l1,
		l2:     l2,
		sub:    sub,
		logger: logger,
	}
}

// StartInvalidationSubscription listens for gate invalidations from
// other instances. Call it in a goroutine; it returns when ctx ends.
func (c *TieredFeatureGateCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.sub == nil {
		return nil
	}
	pubsub := c.sub.Subscribe(ctx, gateInvalidationChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			tenantID, err := uuid.Parse(msg.Payload)
			if err != nil {
				c.logger.Warn("Ignoring malformed gate invalidation message",
					zap.String("payload", msg.Payload))
				continue
			}
			if err := c.l1.Invalidate(ctx, tenantID); err != nil {
				c.logger.Error("Failed to invalidate L1 gate entry",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err))
			}
		}
	}
}

func (c *TieredFeatureGateCache) GetFeatures(ctx context.Context, tenantID uuid.UUID) ([]billing.FeatureKey, bool, error) {
	features, ok, err := c.l1.GetFeatures(ctx, tenantID)
	if err == nil && ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return features, true, nil
	}
	atomic.AddInt64(&c.l1Misses, 1)

	features, ok, err = c.l2.GetFeatures(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		atomic.AddInt64(&c.l2Misses, 1)
		return nil, false, nil
	}
	atomic.AddInt64(&c.l2Hits, 1)

	// warm L1 for the next request on this instance
	if err := c.l1.SetFeatures(ctx, tenantID, features); err != nil {
		c.logger.Warn("Failed to warm L1 gate cache", zap.Error(err))
	}
	return features, true, nil
}

func (c *TieredFeatureGateCache) SetFeatures(ctx context.Context, tenantID uuid.UUID, features []billing.FeatureKey) error {
	if err := c.l2.SetFeatures(ctx, tenantID, features); err != nil {
		return err
	}
	return c.l1.SetFeatures(ctx, tenantID, features)
}

func (c *TieredFeatureGateCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	// L2 invalidation also publishes, which clears L1 on other instances
	if err := c.l2.Invalidate(ctx, tenantID); err != nil {
		return err
	}
	return c.l1.Invalidate(ctx, tenantID)
}

// Stats reports tier hit counters for the metrics endpoint.
func (c *TieredFeatureGateCache) Stats() (l1Hits, l1Misses, l2Hits, l2Misses int64) {
	return atomic.LoadInt64(&c.l1Hits),
		atomic.LoadInt64(&c.l1Misses),
		atomic.LoadInt64(&c.l2Hits),
		atomic.LoadInt64(&c.l2Misses)
}
