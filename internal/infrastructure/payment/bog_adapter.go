package payment

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/echodesk/backend/internal/domain/billing"
)

const (
	bogOrdersPath  = "/ecommerce/orders"
	bogReceiptPath = "/receipt/%s"

	// Tokens are refreshed this long before their reported expiry.
	bogTokenExpiryBuffer = 5 * time.Minute
)

// BOGAdapter implements the PaymentGateway port against the Bank of
// Georgia payments API.
type BOGAdapter struct {
	config     *BOGConfig
	httpClient *http.Client

	tokenMu        sync.Mutex
	accessToken    string
	tokenExpiresAt time.Time
}

// NewBOGAdapter creates a Bank of Georgia gateway adapter.
func NewBOGAdapter(config *BOGConfig) (*BOGAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &BOGAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// CreateOrder registers a checkout order and returns the payment URL.
func (a *BOGAdapter) CreateOrder(ctx context.Context, req *billing.CreateOrderRequest) (*billing.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := req.Amount.Round(2)
	body := bogCreateOrderRequest{
		CallbackURL:     req.CallbackURL,
		ExternalOrderID: req.OrderID,
		PurchaseUnits: bogPurchaseUnits{
			Currency:    req.Currency,
			TotalAmount: amount.StringFixed(2),
			Basket: []bogBasketItem{
				{
					ProductID:   req.OrderID,
					Description: truncate(req.Description, 255),
					Quantity:    1,
					UnitPrice:   amount.StringFixed(2),
				},
			},
		},
		PaymentMethod: []string{"card"},
	}
	if req.RedirectURL != "" {
		body.RedirectURLs = &bogRedirectURLs{
			Success: req.RedirectURL,
			Fail:    req.RedirectURL,
		}
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, bogOrdersPath, body, req.Language)
	if err != nil {
		return nil, err
	}

	var created bogCreateOrderResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayInvalidResponse, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: missing order id", billing.ErrGatewayInvalidResponse)
	}

	response := &billing.CreateOrderResponse{
		ProviderOrderID: created.ID,
	}
	if link, ok := created.Links["redirect"]; ok {
		response.PaymentURL = link.Href
	}
	if response.PaymentURL == "" {
		return nil, fmt.Errorf("%w: missing redirect link", billing.ErrGatewayInvalidResponse)
	}

	// Card tokenization must be requested before the customer pays.
	if req.SaveCard {
		cardPath := fmt.Sprintf("%s/%s/cards", bogOrdersPath, url.PathEscape(created.ID))
		if _, err := a.doRequest(ctx, http.MethodPut, cardPath, nil, req.Language); err != nil {
			return nil, fmt.Errorf("bog: failed to request card save: %w", err)
		}
	}

	return response, nil
}

// GetOrderDetails fetches the authoritative order state from the receipt API.
func (a *BOGAdapter) GetOrderDetails(ctx context.Context, providerOrderID string) (*billing.OrderDetails, error) {
	if providerOrderID == "" {
		return nil, fmt.Errorf("%w: empty provider order id", billing.ErrOrderNotFound)
	}

	path := fmt.Sprintf(bogReceiptPath, url.PathEscape(providerOrderID))
	respBody, err := a.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	var receipt bogReceiptResponse
	if err := json.Unmarshal(respBody, &receipt); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayInvalidResponse, err)
	}
	if receipt.OrderStatus == nil {
		return nil, fmt.Errorf("%w: missing order status", billing.ErrGatewayInvalidResponse)
	}

	details := &billing.OrderDetails{
		ProviderOrderID: providerOrderID,
		Status:          mapBOGOrderStatus(receipt.OrderStatus.Key),
	}
	if receipt.OrderID != "" {
		details.ProviderOrderID = receipt.OrderID
	}

	if units := receipt.PurchaseUnits; units != nil {
		raw := units.TransferAmount
		if raw == "" {
			raw = units.RequestAmount
		}
		if raw != "" {
			if amount, err := decimal.NewFromString(raw); err == nil {
				details.Amount = amount
			}
		}
		details.Currency = units.CurrencyCode
	}

	if pd := receipt.PaymentDetail; pd != nil {
		details.CardSaved = pd.SavedCardType != ""
		if details.Status == billing.GatewayStatusRejected {
			details.RejectReason = pd.CodeDescription
		}
	}

	return details, nil
}

// ChargeSavedCard charges the card saved on a previous order. BOG models
// this as creating a child order under the parent order ID.
func (a *BOGAdapter) ChargeSavedCard(ctx context.Context, parentProviderOrderID, orderID string, amount decimal.Decimal, currency string) (*billing.CreateOrderResponse, error) {
	if parentProviderOrderID == "" {
		return nil, billing.ErrNoSavedCard
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive charge amount", billing.ErrGatewayRequestFailed)
	}

	amount = amount.Round(2)
	body := bogCreateOrderRequest{
		CallbackURL:     a.config.CallbackURL,
		ExternalOrderID: orderID,
		PurchaseUnits: bogPurchaseUnits{
			Currency:    currency,
			TotalAmount: amount.StringFixed(2),
			Basket: []bogBasketItem{
				{
					ProductID:   orderID,
					Description: "Subscription renewal",
					Quantity:    1,
					UnitPrice:   amount.StringFixed(2),
				},
			},
		},
	}

	path := fmt.Sprintf("%s/%s", bogOrdersPath, url.PathEscape(parentProviderOrderID))
	respBody, err := a.doRequest(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}

	var created bogCreateOrderResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayInvalidResponse, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: missing order id", billing.ErrGatewayInvalidResponse)
	}

	return &billing.CreateOrderResponse{ProviderOrderID: created.ID}, nil
}

// VerifyCallbackSignature validates the Callback-Signature header with
// SHA256-RSA over the raw body. Verification is skipped when no public
// key is configured.
func (a *BOGAdapter) VerifyCallbackSignature(body []byte, signature string) error {
	key := a.config.PublicKey()
	if key == nil {
		return nil
	}
	if signature == "" {
		return billing.ErrInvalidSignature
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature encoding", billing.ErrInvalidSignature)
	}

	digest := sha256.Sum256(body)
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
		return billing.ErrInvalidSignature
	}
	return nil
}

// getAccessToken returns a cached OAuth token, fetching a new one via
// the client credentials grant when the cached token is near expiry.
func (a *BOGAdapter) getAccessToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiresAt) {
		return a.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("bog: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.config.ClientID, a.config.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", billing.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("bog: failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", billing.ErrGatewayAuthFailed, resp.StatusCode)
	}

	var token bogTokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return "", fmt.Errorf("%w: %v", billing.ErrGatewayInvalidResponse, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", billing.ErrGatewayAuthFailed)
	}

	expiresIn := time.Duration(token.ExpiresIn) * time.Second
	if expiresIn <= bogTokenExpiryBuffer {
		expiresIn = bogTokenExpiryBuffer + time.Minute
	}

	a.accessToken = token.AccessToken
	a.tokenExpiresAt = time.Now().Add(expiresIn - bogTokenExpiryBuffer)

	return a.accessToken, nil
}

// doRequest performs an authenticated request against the payments API.
func (a *BOGAdapter) doRequest(ctx context.Context, method, path string, body interface{}, language string) ([]byte, error) {
	token, err := a.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("bog: failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("bog: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if language == "" {
		language = "en"
	}
	req.Header.Set("Accept-Language", language)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bog: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, billing.ErrOrderNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", billing.ErrGatewayAuthFailed, resp.StatusCode)
	case resp.StatusCode >= 400:
		var errResp bogErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			msg := errResp.Message
			if msg == "" {
				msg = errResp.ErrorDescription
			}
			if msg != "" {
				return nil, fmt.Errorf("%w: %s", billing.ErrGatewayRequestFailed, msg)
			}
		}
		return nil, fmt.Errorf("%w: HTTP %d", billing.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// mapBOGOrderStatus maps provider status keys onto the local gateway
// status set. A refund request leaves the money captured, so it still
// reads as completed.
func mapBOGOrderStatus(key string) billing.GatewayOrderStatus {
	switch key {
	case "created":
		return billing.GatewayStatusCreated
	case "processing":
		return billing.GatewayStatusProcessing
	case "completed", "refund_requested":
		return billing.GatewayStatusCompleted
	case "rejected", "blocked":
		return billing.GatewayStatusRejected
	case "refunded", "refunded_partially":
		return billing.GatewayStatusRefunded
	default:
		return billing.GatewayStatusProcessing
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Ensure BOGAdapter implements PaymentGateway interface
var _ billing.PaymentGateway = (*BOGAdapter)(nil)
