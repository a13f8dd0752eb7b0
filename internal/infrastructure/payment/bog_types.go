package payment

// bogTokenResponse is the OAuth client-credentials grant response.
type bogTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// bogBasketItem is a single line in the order basket.
type bogBasketItem struct {
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// bogPurchaseUnits carries the order total and basket.
type bogPurchaseUnits struct {
	Currency    string          `json:"currency"`
	TotalAmount string          `json:"total_amount"`
	Basket      []bogBasketItem `json:"basket"`
}

// bogRedirectURLs are the customer-facing return URLs.
type bogRedirectURLs struct {
	Success string `json:"success"`
	Fail    string `json:"fail"`
}

// bogCreateOrderRequest is the body for POST /ecommerce/orders.
type bogCreateOrderRequest struct {
	CallbackURL     string           `json:"callback_url"`
	ExternalOrderID string           `json:"external_order_id,omitempty"`
	PurchaseUnits   bogPurchaseUnits `json:"purchase_units"`
	RedirectURLs    *bogRedirectURLs `json:"redirect_urls,omitempty"`
	PaymentMethod   []string         `json:"payment_method,omitempty"`
}

type bogLink struct {
	Href string `json:"href"`
}

// bogCreateOrderResponse is the provider's answer to a new order.
type bogCreateOrderResponse struct {
	ID    string             `json:"id"`
	Links map[string]bogLink `json:"_links"`
}

// bogOrderStatus wraps the status key on receipt responses.
type bogOrderStatus struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// bogPaymentDetail carries transaction-level receipt fields.
type bogPaymentDetail struct {
	TransferMethod  *bogOrderStatus `json:"transfer_method"`
	TransactionID   string          `json:"transaction_id"`
	PayerIdentifier string          `json:"payer_identifier"`
	Code            string          `json:"code"`
	CodeDescription string          `json:"code_description"`
	CardType        string          `json:"card_type"`
	SavedCardType   string          `json:"saved_card_type"`
}

// bogReceiptPurchaseUnits mirrors the amounts on a receipt. BOG
// returns amounts as strings here.
type bogReceiptPurchaseUnits struct {
	RequestAmount  string `json:"request_amount"`
	TransferAmount string `json:"transfer_amount"`
	CurrencyCode   string `json:"currency_code"`
}

// bogReceiptResponse is the body of GET /receipt/{order_id}.
type bogReceiptResponse struct {
	OrderID         string                   `json:"order_id"`
	ExternalOrderID string                   `json:"external_order_id"`
	OrderStatus     *bogOrderStatus          `json:"order_status"`
	PurchaseUnits   *bogReceiptPurchaseUnits `json:"purchase_units"`
	PaymentDetail   *bogPaymentDetail        `json:"payment_detail"`
}

// bogErrorResponse is a generic API error body.
type bogErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}
