package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
)

// RecordingCompletedHandler refreshes a tenant's storage usage counter
// whenever a recording file lands in storage, so quota checks see the
// new footprint without waiting for the nightly snapshot.
type RecordingCompletedHandler struct {
	snapshots *StorageSnapshotService
	logger    *zap.Logger
}

// NewRecordingCompletedHandler creates a new handler for recording completed events
func NewRecordingCompletedHandler(snapshots *StorageSnapshotService, logger *zap.Logger) *RecordingCompletedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingCompletedHandler{snapshots: snapshots, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *RecordingCompletedHandler) EventTypes() []string {
	return []string{crm.EventTypeRecordingCompleted}
}

// Handle re-measures the tenant's recording storage and writes the
// result back to its subscription.
func (h *RecordingCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	usedGB, err := h.snapshots.SnapshotTenant(ctx, event.TenantID())
	if err != nil {
		h.logger.Warn("Failed to refresh storage usage after recording",
			zap.String("tenant_id", event.TenantID().String()),
			zap.Error(err))
		return err
	}

	h.logger.Debug("Storage usage refreshed",
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("storage_used_gb", usedGB.String()))
	return nil
}
