package billing

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckoutOrder(t *testing.T) {
	tenantID := uuid.New()
	packageID := uuid.New()
	amount := decimal.NewFromInt(150)

	t.Run("creates pending order with ED prefix", func(t *testing.T) {
		order, err := NewCheckoutOrder(tenantID, packageID, amount, 3)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(order.OrderID, "ED-"))
		assert.Len(t, order.OrderID, len("ED-")+12)
		assert.Equal(t, order.OrderID, strings.ToUpper(order.OrderID))
		assert.Equal(t, PaymentStatusPending, order.Status)
		assert.Equal(t, OrderKindCheckout, order.Kind)
		assert.Equal(t, "GEL", order.Currency)
		assert.Equal(t, 3, order.AgentCount)
		assert.False(t, order.CardSaved)
		assert.Len(t, order.GetDomainEvents(), 1)
	})

	t.Run("recurring orders use REC prefix", func(t *testing.T) {
		order, err := NewRecurringOrder(tenantID, packageID, amount, 1)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(order.OrderID, "REC-"))
		assert.Equal(t, OrderKindRecurring, order.Kind)
	})

	t.Run("order IDs are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			order, err := NewCheckoutOrder(tenantID, packageID, amount, 1)
			require.NoError(t, err)
			assert.False(t, seen[order.OrderID])
			seen[order.OrderID] = true
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewCheckoutOrder(tenantID, packageID, decimal.Zero, 1)
		assert.Error(t, err)
		_, err = NewCheckoutOrder(tenantID, packageID, decimal.NewFromInt(-5), 1)
		assert.Error(t, err)
	})

	t.Run("rejects zero agent count", func(t *testing.T) {
		_, err := NewCheckoutOrder(tenantID, packageID, amount, 0)
		assert.Error(t, err)
	})

	t.Run("rejects nil IDs", func(t *testing.T) {
		_, err := NewCheckoutOrder(uuid.Nil, packageID, amount, 1)
		assert.Error(t, err)
		_, err = NewCheckoutOrder(tenantID, uuid.Nil, amount, 1)
		assert.Error(t, err)
	})
}

func TestPaymentOrderTransitions(t *testing.T) {
	newOrder := func(t *testing.T) *PaymentOrder {
		order, err := NewCheckoutOrder(uuid.New(), uuid.New(), decimal.NewFromInt(50), 1)
		require.NoError(t, err)
		return order
	}

	t.Run("pending to processing to paid", func(t *testing.T) {
		order := newOrder(t)
		require.NoError(t, order.MarkProcessing())
		assert.Equal(t, PaymentStatusProcessing, order.Status)

		require.NoError(t, order.MarkPaid(true))
		assert.Equal(t, PaymentStatusPaid, order.Status)
		assert.True(t, order.CardSaved)
		assert.NotNil(t, order.PaidAt)
		assert.True(t, order.IsPaid())
	})

	t.Run("pending directly to paid", func(t *testing.T) {
		order := newOrder(t)
		require.NoError(t, order.MarkPaid(false))
		assert.True(t, order.IsPaid())
		assert.False(t, order.CardSaved)
	})

	t.Run("paid order can be refunded but not failed", func(t *testing.T) {
		order := newOrder(t)
		require.NoError(t, order.MarkPaid(false))

		assert.Error(t, order.MarkFailed("too late"))
		assert.Error(t, order.Cancel())
		require.NoError(t, order.MarkRefunded())
		assert.Equal(t, PaymentStatusRefunded, order.Status)
	})

	t.Run("failed order stays failed", func(t *testing.T) {
		order := newOrder(t)
		require.NoError(t, order.MarkFailed("card declined"))
		assert.Equal(t, "card declined", order.FailureReason)

		assert.Error(t, order.MarkPaid(false))
		assert.Error(t, order.MarkProcessing())
	})

	t.Run("cannot refund unpaid order", func(t *testing.T) {
		order := newOrder(t)
		assert.Error(t, order.MarkRefunded())
	})

	t.Run("same status transition is a no-op", func(t *testing.T) {
		order := newOrder(t)
		require.NoError(t, order.MarkProcessing())
		require.NoError(t, order.MarkProcessing())
		assert.Equal(t, PaymentStatusProcessing, order.Status)
	})

	t.Run("final statuses reported correctly", func(t *testing.T) {
		assert.True(t, PaymentStatusFailed.IsFinal())
		assert.True(t, PaymentStatusCancelled.IsFinal())
		assert.True(t, PaymentStatusRefunded.IsFinal())
		assert.False(t, PaymentStatusPaid.IsFinal())
		assert.False(t, PaymentStatusPending.IsFinal())
	})
}

func TestPaymentOrderProviderAndMetadata(t *testing.T) {
	order, err := NewCheckoutOrder(uuid.New(), uuid.New(), decimal.NewFromInt(100), 1)
	require.NoError(t, err)

	t.Run("attach provider details", func(t *testing.T) {
		require.NoError(t, order.AttachProvider("bog-abc-123", "https://pay.example/checkout/abc"))
		assert.Equal(t, "bog-abc-123", order.ProviderOrderID)
		assert.Equal(t, "https://pay.example/checkout/abc", order.PaymentURL)
	})

	t.Run("empty provider ID rejected", func(t *testing.T) {
		assert.Error(t, order.AttachProvider("", "https://pay.example"))
	})

	t.Run("metadata round trip", func(t *testing.T) {
		order.SetMetadata("registration_id", "reg-1")
		assert.Equal(t, "reg-1", order.MetadataString("registration_id"))
		assert.Empty(t, order.MetadataString("missing"))
	})
}

func TestGatewayStatusMapping(t *testing.T) {
	cases := map[GatewayOrderStatus]PaymentOrderStatus{
		GatewayStatusCreated:    PaymentStatusPending,
		GatewayStatusProcessing: PaymentStatusProcessing,
		GatewayStatusCompleted:  PaymentStatusPaid,
		GatewayStatusRejected:   PaymentStatusFailed,
		GatewayStatusRefunded:   PaymentStatusRefunded,
	}
	for gw, want := range cases {
		assert.Equal(t, want, gw.ToOrderStatus(), "gateway status %s", gw)
		assert.True(t, gw.IsValid())
	}
	assert.Equal(t, PaymentStatusPending, GatewayOrderStatus("bogus").ToOrderStatus())
	assert.False(t, GatewayOrderStatus("bogus").IsValid())
}
