package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPendingRegistrationRepository implements PendingRegistrationRepository using GORM
type GormPendingRegistrationRepository struct {
	db *gorm.DB
}

// NewGormPendingRegistrationRepository creates a new GormPendingRegistrationRepository
func NewGormPendingRegistrationRepository(db *gorm.DB) *GormPendingRegistrationRepository {
	return &GormPendingRegistrationRepository{db: db}
}

// Save creates or updates a pending registration
func (r *GormPendingRegistrationRepository) Save(ctx context.Context, reg *billing.PendingRegistration) error {
	return r.db.WithContext(ctx).Save(reg).Error
}

// FindByID finds a pending registration by ID
func (r *GormPendingRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PendingRegistration, error) {
	var reg billing.PendingRegistration
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// FindByOrderID finds the registration attached to a payment order
func (r *GormPendingRegistrationRepository) FindByOrderID(ctx context.Context, orderID string) (*billing.PendingRegistration, error) {
	if orderID == "" {
		return nil, shared.ErrNotFound
	}
	var reg billing.PendingRegistration
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// ExistsUnprocessedBySchema checks whether an unexpired, unprocessed
// signup already reserves the schema
func (r *GormPendingRegistrationRepository) ExistsUnprocessedBySchema(ctx context.Context, schema string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&billing.PendingRegistration{}).
		Where("LOWER(schema) = ?", strings.ToLower(schema)).
		Where("is_processed = ?", false).
		Where("expires_at > ?", time.Now()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteExpired removes unprocessed registrations that expired before
// the given time and returns how many were removed
func (r *GormPendingRegistrationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_processed = ?", false).
		Where("expires_at < ?", before).
		Delete(&billing.PendingRegistration{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormPendingRegistrationRepository implements PendingRegistrationRepository
var _ billing.PendingRegistrationRepository = (*GormPendingRegistrationRepository)(nil)
