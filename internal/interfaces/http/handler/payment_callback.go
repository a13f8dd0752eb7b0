package handler

import (
	"github.com/echodesk/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// PaymentCallbackHandler receives Bank of Georgia payment callbacks.
// The route is unauthenticated; the payload is trusted only after its
// signature verifies against the bank's public key.
type PaymentCallbackHandler struct {
	BaseHandler
	webhookService *billing.PaymentWebhookService
}

// NewPaymentCallbackHandler creates a new payment callback handler
func NewPaymentCallbackHandler(webhookService *billing.PaymentWebhookService) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{
		webhookService: webhookService,
	}
}

// HandleCallback godoc
//
//	@ID				paymentCallback
//	@Summary		Settle a payment callback
//	@Description	Verify the Callback-Signature header, then apply the order status: provision on first payment, renew on recurring charges
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	APIResponse[billing.WebhookResult]
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		403	{object}	dto.ErrorResponse
//	@Router			/webhooks/bog [post]
func (h *PaymentCallbackHandler) HandleCallback(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Unreadable request body")
		return
	}

	result, err := h.webhookService.ProcessCallback(c.Request.Context(), payload, c.GetHeader("Callback-Signature"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
