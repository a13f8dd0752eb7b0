package billing

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echodesk/backend/internal/domain/billing"
)

// FeatureGateCache caches the feature keys a tenant's package grants.
// A miss means the gate resolves them from the subscription and writes
// them back. The Redis and tiered caches in infrastructure/cache
// implement it.
type FeatureGateCache interface {
	GetFeatures(ctx context.Context, tenantID uuid.UUID) ([]billing.FeatureKey, bool, error)
	SetFeatures(ctx context.Context, tenantID uuid.UUID, features []billing.FeatureKey) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// CachedFeatureGate answers feature checks from the cache when it can,
// falling back to the quota service's subscription lookup. Cache
// failures degrade to direct lookups, never to denied requests.
type CachedFeatureGate struct {
	quota  *QuotaService
	cache  FeatureGateCache // optional
	logger *zap.Logger
}

// NewCachedFeatureGate creates the gate. cache may be nil, in which
// case every check hits the database.
func NewCachedFeatureGate(quota *QuotaService, cache FeatureGateCache, logger *zap.Logger) *CachedFeatureGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFeatureGate{quota: quota, cache: cache, logger: logger}
}

// HasFeature reports whether the tenant's package enables the feature.
func (g *CachedFeatureGate) HasFeature(ctx context.Context, tenantID uuid.UUID, key billing.FeatureKey) (bool, error) {
	if g.cache != nil {
		keys, ok, err := g.cache.GetFeatures(ctx, tenantID)
		if err != nil {
			g.logger.Debug("Feature gate cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		} else if ok {
			return containsFeature(keys, key), nil
		}
	}

	_, pkg, err := g.quota.loadSubscription(ctx, tenantID)
	if err != nil {
		return false, err
	}
	keys := pkg.Features.Keys()

	if g.cache != nil {
		if err := g.cache.SetFeatures(ctx, tenantID, keys); err != nil {
			g.logger.Debug("Feature gate cache write failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	return containsFeature(keys, key), nil
}

// Invalidate drops a tenant's cached entry. Called when the package
// changes faster than the TTL can be trusted, e.g. after an upgrade.
func (g *CachedFeatureGate) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Invalidate(ctx, tenantID)
}

func containsFeature(keys []billing.FeatureKey, key billing.FeatureKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
