package payment

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echodesk/backend/internal/domain/billing"
)

func TestBOGConfig_Validate(t *testing.T) {
	t.Run("valid config with defaults", func(t *testing.T) {
		cfg := &BOGConfig{
			ClientID:     "client",
			ClientSecret: "secret",
		}

		require.NoError(t, cfg.Validate())
		assert.Equal(t, bogDefaultAuthURL, cfg.AuthURL)
		assert.Equal(t, bogDefaultBaseURL, cfg.BaseURL)
		assert.NotZero(t, cfg.Timeout)
	})

	t.Run("missing client ID", func(t *testing.T) {
		cfg := &BOGConfig{ClientSecret: "secret"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing client secret", func(t *testing.T) {
		cfg := &BOGConfig{ClientID: "client"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("parses PKIX public key", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		require.NoError(t, err)
		pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

		cfg := &BOGConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			PublicKeyPEM: string(pemData),
		}
		require.NoError(t, cfg.Validate())
		assert.NotNil(t, cfg.PublicKey())
	})

	t.Run("rejects garbage public key", func(t *testing.T) {
		cfg := &BOGConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			PublicKeyPEM: "not a key",
		}
		assert.Error(t, cfg.Validate())
	})
}

// newBOGTestServer returns an adapter wired to a test server. The
// handler receives API requests; token requests are served internally.
func newBOGTestServer(t *testing.T, tokenCalls *int32, handler http.HandlerFunc) (*BOGAdapter, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenCalls != nil {
			atomic.AddInt32(tokenCalls, 1)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-client" || pass != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := &BOGConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		AuthURL:      server.URL + "/token",
		BaseURL:      server.URL,
		CallbackURL:  "https://api.example.com/webhooks/payments",
	}
	adapter, err := NewBOGAdapter(cfg)
	require.NoError(t, err)

	return adapter, server
}

func TestBOGAdapter_CreateOrder(t *testing.T) {
	t.Run("creates order and returns payment URL", func(t *testing.T) {
		var gotBody bogCreateOrderRequest
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/ecommerce/orders", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": "bog-order-123",
				"_links": map[string]interface{}{
					"redirect": map[string]string{"href": "https://payment.bog.ge/checkout/123"},
					"details":  map[string]string{"href": "https://api.bog.ge/receipt/123"},
				},
			})
		})

		resp, err := adapter.CreateOrder(context.Background(), &billing.CreateOrderRequest{
			OrderID:     "ED-A1B2C3D4E5F6",
			Amount:      decimal.RequireFromString("150.50"),
			Currency:    "GEL",
			Description: "EchoDesk Professional - Acme Corp",
			CallbackURL: "https://api.example.com/webhooks/payments",
			RedirectURL: "https://acme.example.com/billing",
		})
		require.NoError(t, err)

		assert.Equal(t, "bog-order-123", resp.ProviderOrderID)
		assert.Equal(t, "https://payment.bog.ge/checkout/123", resp.PaymentURL)

		assert.Equal(t, "ED-A1B2C3D4E5F6", gotBody.ExternalOrderID)
		assert.Equal(t, "150.50", gotBody.PurchaseUnits.TotalAmount)
		assert.Equal(t, "GEL", gotBody.PurchaseUnits.Currency)
		require.Len(t, gotBody.PurchaseUnits.Basket, 1)
		assert.Equal(t, "150.50", gotBody.PurchaseUnits.Basket[0].UnitPrice)
		require.NotNil(t, gotBody.RedirectURLs)
		assert.Equal(t, "https://acme.example.com/billing", gotBody.RedirectURLs.Success)
	})

	t.Run("requests card save when asked", func(t *testing.T) {
		var sawCardSave bool
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPut && r.URL.Path == "/ecommerce/orders/bog-order-123/cards" {
				sawCardSave = true
				w.WriteHeader(http.StatusOK)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": "bog-order-123",
				"_links": map[string]interface{}{
					"redirect": map[string]string{"href": "https://payment.bog.ge/checkout/123"},
				},
			})
		})

		_, err := adapter.CreateOrder(context.Background(), &billing.CreateOrderRequest{
			OrderID:     "ED-A1B2C3D4E5F6",
			Amount:      decimal.NewFromInt(100),
			Currency:    "GEL",
			SaveCard:    true,
			CallbackURL: "https://api.example.com/webhooks/payments",
		})
		require.NoError(t, err)
		assert.True(t, sawCardSave)
	})

	t.Run("rejects invalid request before network", func(t *testing.T) {
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not reach API")
		})

		_, err := adapter.CreateOrder(context.Background(), &billing.CreateOrderRequest{
			OrderID:  "ED-A1B2C3D4E5F6",
			Amount:   decimal.NewFromInt(-5),
			Currency: "GEL",
		})
		assert.Error(t, err)
	})

	t.Run("maps gateway error body", func(t *testing.T) {
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid currency"})
		})

		_, err := adapter.CreateOrder(context.Background(), &billing.CreateOrderRequest{
			OrderID:     "ED-A1B2C3D4E5F6",
			Amount:      decimal.NewFromInt(100),
			Currency:    "XXX",
			CallbackURL: "https://api.example.com/webhooks/payments",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, billing.ErrGatewayRequestFailed)
		assert.Contains(t, err.Error(), "invalid currency")
	})

	t.Run("caches access token across calls", func(t *testing.T) {
		var tokenCalls int32
		adapter, _ := newBOGTestServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": "bog-order-123",
				"_links": map[string]interface{}{
					"redirect": map[string]string{"href": "https://payment.bog.ge/checkout/123"},
				},
			})
		})

		req := &billing.CreateOrderRequest{
			OrderID:     "ED-A1B2C3D4E5F6",
			Amount:      decimal.NewFromInt(100),
			Currency:    "GEL",
			CallbackURL: "https://api.example.com/webhooks/payments",
		}
		_, err := adapter.CreateOrder(context.Background(), req)
		require.NoError(t, err)
		_, err = adapter.CreateOrder(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
	})
}

func TestBOGAdapter_GetOrderDetails(t *testing.T) {
	t.Run("parses completed receipt", func(t *testing.T) {
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/receipt/bog-order-123", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"order_id":          "bog-order-123",
				"external_order_id": "ED-A1B2C3D4E5F6",
				"order_status":      map[string]string{"key": "completed", "value": "Completed"},
				"purchase_units": map[string]string{
					"request_amount":  "150.50",
					"transfer_amount": "150.50",
					"currency_code":   "GEL",
				},
				"payment_detail": map[string]string{
					"transaction_id":  "txn-789",
					"saved_card_type": "recurrent",
				},
			})
		})

		details, err := adapter.GetOrderDetails(context.Background(), "bog-order-123")
		require.NoError(t, err)

		assert.Equal(t, "bog-order-123", details.ProviderOrderID)
		assert.Equal(t, billing.GatewayStatusCompleted, details.Status)
		assert.True(t, details.Amount.Equal(decimal.RequireFromString("150.50")))
		assert.Equal(t, "GEL", details.Currency)
		assert.True(t, details.CardSaved)
		assert.Empty(t, details.RejectReason)
	})

	t.Run("carries reject reason", func(t *testing.T) {
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"order_id":     "bog-order-123",
				"order_status": map[string]string{"key": "rejected"},
				"payment_detail": map[string]string{
					"code":             "117",
					"code_description": "insufficient funds",
				},
			})
		})

		details, err := adapter.GetOrderDetails(context.Background(), "bog-order-123")
		require.NoError(t, err)
		assert.Equal(t, billing.GatewayStatusRejected, details.Status)
		assert.Equal(t, "insufficient funds", details.RejectReason)
		assert.False(t, details.CardSaved)
	})

	t.Run("maps not found", func(t *testing.T) {
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := adapter.GetOrderDetails(context.Background(), "missing")
		assert.ErrorIs(t, err, billing.ErrOrderNotFound)
	})
}

func TestMapBOGOrderStatus(t *testing.T) {
	cases := map[string]billing.GatewayOrderStatus{
		"created":            billing.GatewayStatusCreated,
		"processing":         billing.GatewayStatusProcessing,
		"completed":          billing.GatewayStatusCompleted,
		"refund_requested":   billing.GatewayStatusCompleted,
		"rejected":           billing.GatewayStatusRejected,
		"blocked":            billing.GatewayStatusRejected,
		"refunded":           billing.GatewayStatusRefunded,
		"refunded_partially": billing.GatewayStatusRefunded,
		"something-new":      billing.GatewayStatusProcessing,
	}

	for key, want := range cases {
		assert.Equal(t, want, mapBOGOrderStatus(key), "key %q", key)
	}
}

func TestBOGAdapter_ChargeSavedCard(t *testing.T) {
	t.Run("posts child order under parent", func(t *testing.T) {
		var gotBody bogCreateOrderRequest
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/ecommerce/orders/bog-parent-1", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "bog-child-2"})
		})

		resp, err := adapter.ChargeSavedCard(context.Background(), "bog-parent-1", "REC-A1B2C3D4E5F6",
			decimal.RequireFromString("99.00"), "GEL")
		require.NoError(t, err)

		assert.Equal(t, "bog-child-2", resp.ProviderOrderID)
		assert.Equal(t, "REC-A1B2C3D4E5F6", gotBody.ExternalOrderID)
		assert.Equal(t, "99.00", gotBody.PurchaseUnits.TotalAmount)
		assert.Equal(t, "https://api.example.com/webhooks/payments", gotBody.CallbackURL)
	})

	t.Run("requires parent order", func(t *testing.T) {
		adapter, _ := newBOGTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not reach API")
		})

		_, err := adapter.ChargeSavedCard(context.Background(), "", "REC-A1B2C3D4E5F6",
			decimal.NewFromInt(99), "GEL")
		assert.ErrorIs(t, err, billing.ErrNoSavedCard)
	})
}

func TestBOGAdapter_VerifyCallbackSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	newAdapter := func(publicKey string) *BOGAdapter {
		adapter, err := NewBOGAdapter(&BOGConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			PublicKeyPEM: publicKey,
		})
		require.NoError(t, err)
		return adapter
	}

	body := []byte(`{"order_id":"bog-order-123","status":"completed"}`)
	digest := sha256.Sum256(body)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	signature := base64.StdEncoding.EncodeToString(sig)

	t.Run("accepts valid signature", func(t *testing.T) {
		adapter := newAdapter(string(pemData))
		assert.NoError(t, adapter.VerifyCallbackSignature(body, signature))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		adapter := newAdapter(string(pemData))
		err := adapter.VerifyCallbackSignature([]byte(`{"order_id":"other"}`), signature)
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("rejects missing signature", func(t *testing.T) {
		adapter := newAdapter(string(pemData))
		err := adapter.VerifyCallbackSignature(body, "")
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("skips verification without public key", func(t *testing.T) {
		adapter := newAdapter("")
		assert.NoError(t, adapter.VerifyCallbackSignature(body, "anything"))
	})
}
