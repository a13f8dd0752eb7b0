package persistence

import (
	"context"
	"errors"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentOrderRepository implements PaymentOrderRepository using GORM
type GormPaymentOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormPaymentOrderRepository creates a new GormPaymentOrderRepository
func NewGormPaymentOrderRepository(db *gorm.DB) *GormPaymentOrderRepository {
	return &GormPaymentOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormPaymentOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// Save creates or updates a payment order. When an outbox saver is set,
// pending domain events are persisted in the same transaction and
// drained from the aggregate; the outbox processor delivers them.
func (r *GormPaymentOrderRepository) Save(ctx context.Context, order *billing.PaymentOrder) error {
	events := order.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return r.db.WithContext(ctx).Save(order).Error
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		return r.outboxSaver.SaveEvents(ctx, tx, events...)
	})
	if err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

// FindByID finds a payment order by ID
func (r *GormPaymentOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentOrder, error) {
	var order billing.PaymentOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByOrderID finds a payment order by its local order ID
func (r *GormPaymentOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*billing.PaymentOrder, error) {
	if orderID == "" {
		return nil, shared.ErrNotFound
	}
	var order billing.PaymentOrder
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByProviderOrderID finds a payment order by the provider's order ID
func (r *GormPaymentOrderRepository) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*billing.PaymentOrder, error) {
	if providerOrderID == "" {
		return nil, shared.ErrNotFound
	}
	var order billing.PaymentOrder
	if err := r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByTenant returns the tenant's most recent payment orders
func (r *GormPaymentOrderRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*billing.PaymentOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	var orders []*billing.PaymentOrder
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindLastPaidWithCard returns the tenant's most recent paid order that
// saved a card, the charge source for renewals
func (r *GormPaymentOrderRepository) FindLastPaidWithCard(ctx context.Context, tenantID uuid.UUID) (*billing.PaymentOrder, error) {
	var order billing.PaymentOrder
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", billing.PaymentStatusPaid).
		Where("card_saved = ?", true).
		Where("provider_order_id <> ''").
		Order("paid_at DESC").
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Ensure GormPaymentOrderRepository implements PaymentOrderRepository
var _ billing.PaymentOrderRepository = (*GormPaymentOrderRepository)(nil)
