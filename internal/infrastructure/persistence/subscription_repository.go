package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormSubscriptionRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// Save creates or updates a subscription. When an outbox saver is set,
// pending domain events are persisted in the same transaction and
// drained from the aggregate; the outbox processor delivers them.
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.TenantSubscription) error {
	events := sub.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return r.db.WithContext(ctx).Save(sub).Error
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(sub).Error; err != nil {
			return err
		}
		return r.outboxSaver.SaveEvents(ctx, tx, events...)
	})
	if err != nil {
		return err
	}
	sub.ClearDomainEvents()
	return nil
}

// FindByID finds a subscription by ID
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.TenantSubscription, error) {
	var sub billing.TenantSubscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindByTenant finds the tenant's subscription
func (r *GormSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.TenantSubscription, error) {
	var sub billing.TenantSubscription
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindDueForRenewal returns active subscriptions whose next billing date
// falls on or before the cutoff
func (r *GormSubscriptionRepository) FindDueForRenewal(ctx context.Context, cutoff time.Time) ([]*billing.TenantSubscription, error) {
	var subs []*billing.TenantSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("next_billing_date IS NOT NULL").
		Where("next_billing_date <= ?", cutoff).
		Order("next_billing_date ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// FindExpiring returns active subscriptions expiring in exactly
// daysAhead days
func (r *GormSubscriptionRepository) FindExpiring(ctx context.Context, daysAhead int) ([]*billing.TenantSubscription, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, daysAhead)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var subs []*billing.TenantSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("expires_at >= ? AND expires_at < ?", dayStart, dayEnd).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// FindInGrace returns active subscriptions that have expired but are
// still inside the grace window
func (r *GormSubscriptionRepository) FindInGrace(ctx context.Context) ([]*billing.TenantSubscription, error) {
	now := time.Now()
	graceCutoff := now.AddDate(0, 0, -billing.GracePeriodDays)

	var subs []*billing.TenantSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("expires_at < ? AND expires_at >= ?", now, graceCutoff).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// FindGraceExpired returns active subscriptions whose grace window has
// fully elapsed
func (r *GormSubscriptionRepository) FindGraceExpired(ctx context.Context) ([]*billing.TenantSubscription, error) {
	graceCutoff := time.Now().AddDate(0, 0, -billing.GracePeriodDays)

	var subs []*billing.TenantSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("expires_at < ?", graceCutoff).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// Ensure GormSubscriptionRepository implements SubscriptionRepository
var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
