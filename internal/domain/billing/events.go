package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/echodesk/backend/internal/domain/shared"
)

const (
	EventTypeSubscriptionStarted     = "billing.subscription.started"
	EventTypeSubscriptionRenewed     = "billing.subscription.renewed"
	EventTypeSubscriptionDeactivated = "billing.subscription.deactivated"
	EventTypePaymentOrderCreated     = "billing.payment_order.created"
	EventTypePaymentOrderPaid        = "billing.payment_order.paid"
	EventTypePaymentOrderFailed      = "billing.payment_order.failed"
)

// SubscriptionStartedEvent fires when a tenant's first paid cycle begins.
type SubscriptionStartedEvent struct {
	shared.BaseDomainEvent
	PackageID  uuid.UUID `json:"package_id"`
	AgentCount int       `json:"agent_count"`
}

func NewSubscriptionStartedEvent(s *TenantSubscription) *SubscriptionStartedEvent {
	return &SubscriptionStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionStarted, "TenantSubscription", s.ID, s.TenantID),
		PackageID:       s.PackageID,
		AgentCount:      s.AgentCount,
	}
}

// SubscriptionRenewedEvent fires on every successful renewal payment.
type SubscriptionRenewedEvent struct {
	shared.BaseDomainEvent
	PackageID uuid.UUID `json:"package_id"`
	ExpiresAt string    `json:"expires_at"`
}

func NewSubscriptionRenewedEvent(s *TenantSubscription) *SubscriptionRenewedEvent {
	return &SubscriptionRenewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionRenewed, "TenantSubscription", s.ID, s.TenantID),
		PackageID:       s.PackageID,
		ExpiresAt:       s.ExpiresAt.Format("2006-01-02"),
	}
}

// SubscriptionDeactivatedEvent fires when grace runs out without payment.
type SubscriptionDeactivatedEvent struct {
	shared.BaseDomainEvent
	PackageID uuid.UUID `json:"package_id"`
}

func NewSubscriptionDeactivatedEvent(s *TenantSubscription) *SubscriptionDeactivatedEvent {
	return &SubscriptionDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionDeactivated, "TenantSubscription", s.ID, s.TenantID),
		PackageID:       s.PackageID,
	}
}

// PaymentOrderCreatedEvent fires when a charge attempt is registered.
type PaymentOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID string          `json:"order_id"`
	Kind    OrderKind       `json:"kind"`
	Amount  decimal.Decimal `json:"amount"`
}

func NewPaymentOrderCreatedEvent(o *PaymentOrder) *PaymentOrderCreatedEvent {
	return &PaymentOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentOrderCreated, "PaymentOrder", o.ID, o.TenantID),
		OrderID:         o.OrderID,
		Kind:            o.Kind,
		Amount:          o.Amount,
	}
}

// PaymentOrderPaidEvent fires on settlement; subscribers renew the
// subscription or provision the tenant.
type PaymentOrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID   string          `json:"order_id"`
	Kind      OrderKind       `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	CardSaved bool            `json:"card_saved"`
}

func NewPaymentOrderPaidEvent(o *PaymentOrder) *PaymentOrderPaidEvent {
	return &PaymentOrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentOrderPaid, "PaymentOrder", o.ID, o.TenantID),
		OrderID:         o.OrderID,
		Kind:            o.Kind,
		Amount:          o.Amount,
		CardSaved:       o.CardSaved,
	}
}

// PaymentOrderFailedEvent fires when the provider rejects a charge.
type PaymentOrderFailedEvent struct {
	shared.BaseDomainEvent
	OrderID string    `json:"order_id"`
	Kind    OrderKind `json:"kind"`
	Reason  string    `json:"reason"`
}

func NewPaymentOrderFailedEvent(o *PaymentOrder) *PaymentOrderFailedEvent {
	return &PaymentOrderFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentOrderFailed, "PaymentOrder", o.ID, o.TenantID),
		OrderID:         o.OrderID,
		Kind:            o.Kind,
		Reason:          o.FailureReason,
	}
}
