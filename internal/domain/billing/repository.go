package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PackageRepository persists the shared package catalog.
type PackageRepository interface {
	Save(ctx context.Context, pkg *Package) error
	FindByID(ctx context.Context, id uuid.UUID) (*Package, error)
	FindByName(ctx context.Context, name string) (*Package, error)
	FindActive(ctx context.Context) ([]*Package, error)
	FindAll(ctx context.Context) ([]*Package, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubscriptionRepository persists tenant subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *TenantSubscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*TenantSubscription, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*TenantSubscription, error)

	// FindDueForRenewal returns active subscriptions whose next billing
	// date falls on or before the cutoff, for the recurring charge job.
	FindDueForRenewal(ctx context.Context, cutoff time.Time) ([]*TenantSubscription, error)

	// FindExpiring returns active subscriptions expiring in exactly
	// daysAhead days, for renewal reminder notifications.
	FindExpiring(ctx context.Context, daysAhead int) ([]*TenantSubscription, error)

	// FindInGrace returns active subscriptions that have expired but are
	// still inside the grace window, for the daily payment warning.
	FindInGrace(ctx context.Context) ([]*TenantSubscription, error)

	// FindGraceExpired returns active subscriptions whose grace window
	// has fully elapsed, for the suspension job.
	FindGraceExpired(ctx context.Context) ([]*TenantSubscription, error)
}

// PaymentOrderRepository persists charge attempts.
type PaymentOrderRepository interface {
	Save(ctx context.Context, order *PaymentOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentOrder, error)
	FindByOrderID(ctx context.Context, orderID string) (*PaymentOrder, error)
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*PaymentOrder, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*PaymentOrder, error)

	// FindLastPaidWithCard returns the tenant's most recent paid order
	// that saved a card, the charge source for renewals.
	FindLastPaidWithCard(ctx context.Context, tenantID uuid.UUID) (*PaymentOrder, error)
}

// PendingRegistrationRepository persists signups awaiting payment.
type PendingRegistrationRepository interface {
	Save(ctx context.Context, reg *PendingRegistration) error
	FindByID(ctx context.Context, id uuid.UUID) (*PendingRegistration, error)
	FindByOrderID(ctx context.Context, orderID string) (*PendingRegistration, error)
	ExistsUnprocessedBySchema(ctx context.Context, schema string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// UsageLogRepository persists the append-only usage audit trail.
type UsageLogRepository interface {
	Save(ctx context.Context, log *UsageLog) error
	SaveBatch(ctx context.Context, logs []*UsageLog) error
	FindByTenant(ctx context.Context, tenantID uuid.UUID, eventType UsageEventType, from, to time.Time) ([]*UsageLog, error)
	SumByTenant(ctx context.Context, tenantID uuid.UUID, eventType UsageEventType, from, to time.Time) (decimal.Decimal, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
