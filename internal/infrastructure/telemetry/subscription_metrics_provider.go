// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionMetricsProvider implements SubscriptionMetricsProvider using
// GORM. It queries the tenant_subscriptions table directly for aggregated
// metrics.
type GormSubscriptionMetricsProvider struct {
	db *gorm.DB
}

// NewGormSubscriptionMetricsProvider creates a new GormSubscriptionMetricsProvider.
func NewGormSubscriptionMetricsProvider(db *gorm.DB) *GormSubscriptionMetricsProvider {
	return &GormSubscriptionMetricsProvider{db: db}
}

// GetSeatUsage returns the number of seats currently in use for a tenant.
func (p *GormSubscriptionMetricsProvider) GetSeatUsage(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var seats int64
	err := p.db.WithContext(ctx).
		Table("tenant_subscriptions").
		Select("COALESCE(current_users, 0)").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Scan(&seats).Error

	return seats, err
}

// GetStorageUsedGB returns the storage used by a tenant in gigabytes.
func (p *GormSubscriptionMetricsProvider) GetStorageUsedGB(ctx context.Context, tenantID uuid.UUID) (float64, error) {
	var usedGB float64
	err := p.db.WithContext(ctx).
		Table("tenant_subscriptions").
		Select("COALESCE(storage_used_gb, 0)").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Scan(&usedGB).Error

	return usedGB, err
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all active tenant IDs.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("tenants").
		Select("id").
		Where("status = ?", "active").
		Find(&ids).Error

	return ids, err
}
