package billing

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorageMeter measures how many bytes of recording storage a tenant
// currently occupies.
type StorageMeter interface {
	MeasureTenantStorage(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// StorageSnapshotService refreshes each tenant's stored-recording usage
// on its subscription and leaves an audit trail in the usage log. The
// scheduler runs it daily alongside the billing jobs.
type StorageSnapshotService struct {
	subRepo    billing.SubscriptionRepository
	usageRepo  billing.UsageLogRepository
	tenantRepo identity.TenantRepository
	meter      StorageMeter
	logger     *zap.Logger
}

// NewStorageSnapshotService creates a new StorageSnapshotService
func NewStorageSnapshotService(
	subRepo billing.SubscriptionRepository,
	usageRepo billing.UsageLogRepository,
	tenantRepo identity.TenantRepository,
	meter StorageMeter,
	logger *zap.Logger,
) *StorageSnapshotService {
	return &StorageSnapshotService{
		subRepo:    subRepo,
		usageRepo:  usageRepo,
		tenantRepo: tenantRepo,
		meter:      meter,
		logger:     logger,
	}
}

var bytesPerGB = decimal.NewFromInt(1 << 30)

// SnapshotTenant measures one tenant's storage and records it on the
// subscription.
func (s *StorageSnapshotService) SnapshotTenant(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	if tenantID == uuid.Nil {
		return decimal.Zero, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	bytes, err := s.meter.MeasureTenantStorage(ctx, tenantID)
	if err != nil {
		return decimal.Zero, shared.NewDomainError("STORAGE_MEASURE_FAILED", "Failed to measure tenant storage")
	}
	usedGB := decimal.NewFromInt(bytes).Div(bytesPerGB).Round(4)

	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			// Trial tenants have recordings but no subscription yet.
			return usedGB, nil
		}
		return decimal.Zero, shared.NewDomainError("INTERNAL_ERROR", "Failed to load subscription")
	}

	if sub.StorageUsedGB.Equal(usedGB) {
		return usedGB, nil
	}
	if err := sub.SetStorageUsed(usedGB); err != nil {
		return decimal.Zero, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return decimal.Zero, shared.NewDomainError("SAVE_FAILED", "Failed to save storage usage")
	}

	if log, err := billing.NewUsageLog(tenantID, billing.UsageStorage, usedGB); err == nil {
		if err := s.usageRepo.Save(ctx, log); err != nil {
			s.logger.Warn("Failed to append storage usage log",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}

	s.logger.Debug("Storage snapshot recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("used_gb", usedGB.String()))
	return usedGB, nil
}

// SnapshotResult summarizes one run over all active tenants.
type SnapshotResult struct {
	RunAt      time.Time       `json:"run_at"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Errors     []SnapshotError `json:"errors,omitempty"`
}

// SnapshotError records a tenant whose snapshot failed.
type SnapshotError struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Error    string    `json:"error"`
}

// SnapshotAll refreshes storage usage for every active tenant.
func (s *StorageSnapshotService) SnapshotAll(ctx context.Context) (*SnapshotResult, error) {
	ids, err := s.tenantRepo.FindActiveIDs(ctx)
	if err != nil {
		return nil, shared.NewDomainError("FETCH_FAILED", "Failed to fetch active tenants")
	}

	result := &SnapshotResult{RunAt: time.Now().UTC(), Total: len(ids)}
	for _, id := range ids {
		if _, err := s.SnapshotTenant(ctx, id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, SnapshotError{TenantID: id, Error: err.Error()})
			s.logger.Warn("Storage snapshot failed",
				zap.String("tenant_id", id.String()),
				zap.Error(err))
			continue
		}
		result.Successful++
	}

	s.logger.Info("Storage snapshot run completed",
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	return result, nil
}
