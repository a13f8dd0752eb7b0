package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echodesk/backend/internal/domain/billing"
)

// InMemoryFeatureGateCache implements FeatureGateCache with a local map.
// It is the L1 tier in front of Redis and also serves single-instance
// deployments and tests.
type InMemoryFeatureGateCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]gateEntry
	ttl     time.Duration
}

type gateEntry struct {
	features  []billing.FeatureKey
	expiresAt time.Time
}

// NewInMemoryFeatureGateCache creates a local gate cache. ttl <= 0 uses
// the default.
func NewInMemoryFeatureGateCache(ttl time.Duration) *InMemoryFeatureGateCache {
	if ttl <= 0 {
		ttl = defaultGateTTL
	}
	return &InMemoryFeatureGateCache{
		entries: make(map[uuid.UUID]gateEntry),
		ttl:     ttl,
	}
}

func (c *InMemoryFeatureGateCache) GetFeatures(_ context.Context, tenantID uuid.UUID) ([]billing.FeatureKey, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, tenantID)
		c.mu.Unlock()
		return nil, false, nil
	}
	// copy so callers cannot mutate the cached slice
	features := make([]billing.FeatureKey, len(entry.features))
	copy(features, entry.features)
	return features, true, nil
}

func (c *InMemoryFeatureGateCache) SetFeatures(_ context.Context, tenantID uuid.UUID, features []billing.FeatureKey) error {
	stored := make([]billing.FeatureKey, len(features))
	copy(stored, features)
	c.mu.Lock()
	c.entries[tenantID] = gateEntry{
		features:  stored,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryFeatureGateCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
	return nil
}

// Purge drops every entry, used when a package definition changes and
// all tenants need re-resolution.
func (c *InMemoryFeatureGateCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[uuid.UUID]gateEntry)
	c.mu.Unlock()
}
