package billing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/echodesk/backend/internal/domain/shared"
)

// PaymentOrderStatus is the lifecycle of a single charge attempt.
type PaymentOrderStatus string

const (
	PaymentStatusPending    PaymentOrderStatus = "pending"
	PaymentStatusProcessing PaymentOrderStatus = "processing"
	PaymentStatusPaid       PaymentOrderStatus = "paid"
	PaymentStatusFailed     PaymentOrderStatus = "failed"
	PaymentStatusCancelled  PaymentOrderStatus = "cancelled"
	PaymentStatusRefunded   PaymentOrderStatus = "refunded"
)

func (s PaymentOrderStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusPaid,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsFinal reports whether the order can no longer change on its own.
// Paid is not final: a paid order can still be refunded.
func (s PaymentOrderStatus) IsFinal() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// OrderKind distinguishes customer-initiated checkouts from automatic
// renewal charges.
type OrderKind string

const (
	OrderKindCheckout  OrderKind = "checkout"
	OrderKindRecurring OrderKind = "recurring"
)

// PaymentOrder is one charge against the payment provider. Order IDs are
// generated locally ("ED-" for checkouts, "REC-" for recurring charges)
// and the provider's own ID is stored alongside once known.
type PaymentOrder struct {
	shared.TenantAggregateRoot
	OrderID        string             `json:"order_id" gorm:"uniqueIndex;size:20;not null"`
	Kind           OrderKind          `json:"kind" gorm:"size:20;not null;default:'checkout'"`
	ProviderOrderID string            `json:"provider_order_id" gorm:"index;size:100"`
	PackageID      uuid.UUID          `json:"package_id" gorm:"type:uuid;not null"`
	Amount         decimal.Decimal    `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency       string             `json:"currency" gorm:"size:3;not null;default:'GEL'"`
	AgentCount     int                `json:"agent_count" gorm:"not null;default:1"`
	Status         PaymentOrderStatus `json:"status" gorm:"size:20;index;not null;default:'pending'"`
	PaymentURL     string             `json:"payment_url,omitempty" gorm:"size:500"`
	CardSaved      bool               `json:"card_saved" gorm:"not null;default:false"`
	FailureReason  string             `json:"failure_reason,omitempty" gorm:"size:500"`
	Metadata       map[string]any     `json:"metadata,omitempty" gorm:"serializer:json"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

func newOrderID(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived suffix so order creation cannot block.
		return fmt.Sprintf("%s%012X", prefix, time.Now().UnixNano()&0xFFFFFFFFFFFF)
	}
	return prefix + strings.ToUpper(hex.EncodeToString(buf))
}

// NewCheckoutOrder creates a pending customer-initiated order.
func NewCheckoutOrder(tenantID, packageID uuid.UUID, amount decimal.Decimal, agentCount int) (*PaymentOrder, error) {
	return newPaymentOrder(tenantID, packageID, amount, agentCount, OrderKindCheckout, "ED-")
}

// NewRecurringOrder creates a pending automatic renewal charge.
func NewRecurringOrder(tenantID, packageID uuid.UUID, amount decimal.Decimal, agentCount int) (*PaymentOrder, error) {
	return newPaymentOrder(tenantID, packageID, amount, agentCount, OrderKindRecurring, "REC-")
}

func newPaymentOrder(tenantID, packageID uuid.UUID, amount decimal.Decimal, agentCount int, kind OrderKind, prefix string) (*PaymentOrder, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if packageID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Package ID is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Order amount must be positive")
	}
	if agentCount < 1 {
		return nil, shared.NewDomainError("INVALID_AGENT_COUNT", "Agent count must be at least 1")
	}

	order := &PaymentOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderID:             newOrderID(prefix),
		Kind:                kind,
		PackageID:           packageID,
		Amount:              amount,
		Currency:            "GEL",
		AgentCount:          agentCount,
		Status:              PaymentStatusPending,
	}
	order.AddDomainEvent(NewPaymentOrderCreatedEvent(order))
	return order, nil
}

// AttachProvider records the provider's order ID and redirect URL after
// the order is registered with the gateway.
func (o *PaymentOrder) AttachProvider(providerOrderID, paymentURL string) error {
	if providerOrderID == "" {
		return shared.NewDomainError("INVALID_PROVIDER_ORDER", "Provider order ID is required")
	}
	o.ProviderOrderID = providerOrderID
	o.PaymentURL = paymentURL
	o.IncrementVersion()
	return nil
}

// transition validates a status move. The machine is
// pending -> processing -> paid -> refunded, with failed/cancelled
// reachable from any non-final state.
func (o *PaymentOrder) transition(to PaymentOrderStatus) error {
	if o.Status == to {
		return nil
	}
	if o.Status.IsFinal() {
		return shared.NewDomainError("ORDER_FINAL",
			fmt.Sprintf("Order %s is already %s", o.OrderID, o.Status))
	}
	switch to {
	case PaymentStatusProcessing:
		if o.Status != PaymentStatusPending {
			return invalidTransition(o, to)
		}
	case PaymentStatusPaid:
		if o.Status != PaymentStatusPending && o.Status != PaymentStatusProcessing {
			return invalidTransition(o, to)
		}
	case PaymentStatusRefunded:
		if o.Status != PaymentStatusPaid {
			return invalidTransition(o, to)
		}
	case PaymentStatusFailed, PaymentStatusCancelled:
		if o.Status == PaymentStatusPaid {
			return invalidTransition(o, to)
		}
	default:
		return shared.NewDomainError("INVALID_STATUS", "Unknown payment status: "+string(to))
	}
	o.Status = to
	o.IncrementVersion()
	return nil
}

func invalidTransition(o *PaymentOrder, to PaymentOrderStatus) error {
	return shared.NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("Cannot move order %s from %s to %s", o.OrderID, o.Status, to))
}

// MarkProcessing records that the provider accepted the charge.
func (o *PaymentOrder) MarkProcessing() error {
	return o.transition(PaymentStatusProcessing)
}

// MarkPaid settles the order. cardSaved records whether the provider
// stored the card for future recurring charges.
func (o *PaymentOrder) MarkPaid(cardSaved bool) error {
	if err := o.transition(PaymentStatusPaid); err != nil {
		return err
	}
	now := time.Now()
	o.PaidAt = &now
	o.CardSaved = cardSaved
	o.AddDomainEvent(NewPaymentOrderPaidEvent(o))
	return nil
}

// MarkFailed records a provider rejection with its reason.
func (o *PaymentOrder) MarkFailed(reason string) error {
	if err := o.transition(PaymentStatusFailed); err != nil {
		return err
	}
	o.FailureReason = reason
	o.AddDomainEvent(NewPaymentOrderFailedEvent(o))
	return nil
}

// Cancel abandons an unpaid order.
func (o *PaymentOrder) Cancel() error {
	return o.transition(PaymentStatusCancelled)
}

// MarkRefunded records a refund of a paid order.
func (o *PaymentOrder) MarkRefunded() error {
	return o.transition(PaymentStatusRefunded)
}

// IsPaid reports settlement.
func (o *PaymentOrder) IsPaid() bool {
	return o.Status == PaymentStatusPaid
}

// SetMetadata stores a free-form key on the order, used to carry the
// pending registration token through the payment flow.
func (o *PaymentOrder) SetMetadata(key string, value any) {
	if o.Metadata == nil {
		o.Metadata = make(map[string]any)
	}
	o.Metadata[key] = value
	o.IncrementVersion()
}

// MetadataString reads a string metadata value, empty when absent.
func (o *PaymentOrder) MetadataString(key string) string {
	if o.Metadata == nil {
		return ""
	}
	if v, ok := o.Metadata[key].(string); ok {
		return v
	}
	return ""
}
