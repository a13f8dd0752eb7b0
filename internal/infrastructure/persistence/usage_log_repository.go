package persistence

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormUsageLogRepository implements UsageLogRepository using GORM
type GormUsageLogRepository struct {
	db *gorm.DB
}

// NewGormUsageLogRepository creates a new GormUsageLogRepository
func NewGormUsageLogRepository(db *gorm.DB) *GormUsageLogRepository {
	return &GormUsageLogRepository{db: db}
}

// Save persists one usage log row
func (r *GormUsageLogRepository) Save(ctx context.Context, log *billing.UsageLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// SaveBatch persists multiple usage log rows in a single transaction
func (r *GormUsageLogRepository) SaveBatch(ctx context.Context, logs []*billing.UsageLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&logs).Error
	})
}

// FindByTenant returns usage rows for a tenant in the given window,
// optionally narrowed to one event type
func (r *GormUsageLogRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, eventType billing.UsageEventType, from, to time.Time) ([]*billing.UsageLog, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("recorded_at >= ? AND recorded_at < ?", from, to)

	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var logs []*billing.UsageLog
	if err := query.Order("recorded_at ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// SumByTenant totals the quantity consumed by a tenant in the window
func (r *GormUsageLogRepository) SumByTenant(ctx context.Context, tenantID uuid.UUID, eventType billing.UsageEventType, from, to time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&billing.UsageLog{}).
		Where("tenant_id = ?", tenantID).
		Where("recorded_at >= ? AND recorded_at < ?", from, to)

	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var total decimal.Decimal
	if err := query.
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// DeleteOlderThan removes usage rows recorded before the given time and
// returns how many were removed
func (r *GormUsageLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at < ?", before).
		Delete(&billing.UsageLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormUsageLogRepository implements UsageLogRepository
var _ billing.UsageLogRepository = (*GormUsageLogRepository)(nil)
