package billing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrGatewayAuthFailed      = errors.New("payment: gateway authentication failed")
	ErrInvalidSignature       = errors.New("payment: invalid callback signature")
	ErrOrderNotFound          = errors.New("payment: order not found at gateway")
	ErrNoSavedCard            = errors.New("payment: no saved card for recurring charge")
)

// GatewayOrderStatus is the provider's view of an order. The adapter
// maps provider-specific strings onto these values.
type GatewayOrderStatus string

const (
	GatewayStatusCreated    GatewayOrderStatus = "created"
	GatewayStatusProcessing GatewayOrderStatus = "processing"
	GatewayStatusCompleted  GatewayOrderStatus = "completed"
	GatewayStatusRejected   GatewayOrderStatus = "rejected"
	GatewayStatusRefunded   GatewayOrderStatus = "refunded"
)

func (s GatewayOrderStatus) IsValid() bool {
	switch s {
	case GatewayStatusCreated, GatewayStatusProcessing, GatewayStatusCompleted,
		GatewayStatusRejected, GatewayStatusRefunded:
		return true
	default:
		return false
	}
}

// ToOrderStatus maps a provider status onto the local order lifecycle.
func (s GatewayOrderStatus) ToOrderStatus() PaymentOrderStatus {
	switch s {
	case GatewayStatusCreated:
		return PaymentStatusPending
	case GatewayStatusProcessing:
		return PaymentStatusProcessing
	case GatewayStatusCompleted:
		return PaymentStatusPaid
	case GatewayStatusRejected:
		return PaymentStatusFailed
	case GatewayStatusRefunded:
		return PaymentStatusRefunded
	default:
		return PaymentStatusPending
	}
}

// CreateOrderRequest registers a checkout with the provider.
type CreateOrderRequest struct {
	OrderID     string          // local order ID, echoed back in callbacks
	Amount      decimal.Decimal // total in Currency units
	Currency    string
	Description string
	SaveCard    bool   // ask the provider to tokenize the card for renewals
	CallbackURL string // server-to-server payment notification
	RedirectURL string // where the customer lands after checkout
	Language    string // checkout page language hint
}

// Validate checks request fields before the adapter touches the network.
func (r *CreateOrderRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("payment: order ID is required")
	}
	if !r.Amount.IsPositive() {
		return errors.New("payment: amount must be positive")
	}
	if r.Currency == "" {
		return errors.New("payment: currency is required")
	}
	if r.CallbackURL == "" {
		return errors.New("payment: callback URL is required")
	}
	return nil
}

// CreateOrderResponse is the provider's answer to a new checkout.
type CreateOrderResponse struct {
	ProviderOrderID string
	PaymentURL      string
}

// OrderDetails is the provider's current record of an order, fetched
// when a webhook arrives or a charge is reconciled.
type OrderDetails struct {
	ProviderOrderID string
	Status          GatewayOrderStatus
	Amount          decimal.Decimal
	Currency        string
	CardSaved       bool
	RejectReason    string
}

// PaymentGateway is the port to the card payment provider. The
// infrastructure layer supplies the Bank of Georgia implementation.
type PaymentGateway interface {
	// CreateOrder registers a checkout and returns the customer-facing
	// payment URL.
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)

	// GetOrderDetails fetches the authoritative order state. Webhook
	// handlers call this instead of trusting the callback payload.
	GetOrderDetails(ctx context.Context, providerOrderID string) (*OrderDetails, error)

	// ChargeSavedCard charges the card tokenized on a previous order.
	// parentProviderOrderID identifies the order whose card was saved.
	ChargeSavedCard(ctx context.Context, parentProviderOrderID, orderID string, amount decimal.Decimal, currency string) (*CreateOrderResponse, error)

	// VerifyCallbackSignature validates the provider's webhook
	// signature over the raw request body.
	VerifyCallbackSignature(body []byte, signature string) error
}
