package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/shared"
)

// SubscriptionChangedHandler drops a tenant's cached feature set when
// its subscription starts, renews or is deactivated, so gate checks
// pick up the new package without waiting out the cache TTL.
type SubscriptionChangedHandler struct {
	gate   *CachedFeatureGate
	logger *zap.Logger
}

// NewSubscriptionChangedHandler creates a new handler for subscription lifecycle events
func NewSubscriptionChangedHandler(gate *CachedFeatureGate, logger *zap.Logger) *SubscriptionChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionChangedHandler{gate: gate, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *SubscriptionChangedHandler) EventTypes() []string {
	return []string{
		billing.EventTypeSubscriptionStarted,
		billing.EventTypeSubscriptionRenewed,
		billing.EventTypeSubscriptionDeactivated,
	}
}

// Handle invalidates the tenant's feature gate cache entry.
func (h *SubscriptionChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := h.gate.Invalidate(ctx, event.TenantID()); err != nil {
		h.logger.Warn("Failed to invalidate feature gate cache",
			zap.String("tenant_id", event.TenantID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		return err
	}
	return nil
}
