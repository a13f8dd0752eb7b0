package handler

import (
	"github.com/echodesk/backend/internal/application/crm"
	"github.com/echodesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SipWebhookHandler receives PBX call events. The PBX posts
// form-encoded events to the tenant's own host, so the tenant is
// resolved by the tenant middleware rather than a JWT.
type SipWebhookHandler struct {
	BaseHandler
	sipService *crm.SipWebhookService
}

// NewSipWebhookHandler creates a new SIP webhook handler
func NewSipWebhookHandler(sipService *crm.SipWebhookService) *SipWebhookHandler {
	return &SipWebhookHandler{
		sipService: sipService,
	}
}

// SipEventRequest is the form payload posted by the PBX.
type SipEventRequest struct {
	SipCallID string `form:"sip_call_id" json:"sip_call_id" binding:"required"`
	Event     string `form:"event" json:"event" binding:"required"`
	Caller    string `form:"caller" json:"caller"`
	Recipient string `form:"recipient" json:"recipient"`
	Direction string `form:"direction" json:"direction"`
	AgentID   string `form:"agent_id" json:"agent_id"`
}

// HandleEvent godoc
//
//	@ID				sipCallEvent
//	@Summary		Ingest a PBX call event
//	@Description	Translate one PBX event into a call log transition
//	@Tags			webhooks
//	@Accept			x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			request	formData	SipEventRequest	true	"PBX event"
//	@Success		200		{object}	APIResponse[crm.CallDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Router			/webhooks/sip [post]
func (h *SipWebhookHandler) HandleEvent(c *gin.Context) {
	var req SipEventRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BadRequest(c, "Invalid event payload")
		return
	}

	tenantID, err := middleware.GetTenantUUID(c)
	if err != nil {
		h.BadRequest(c, "Tenant could not be resolved")
		return
	}

	call, err := h.sipService.ProcessEvent(c.Request.Context(), tenantID, crm.SipEventInput{
		SipCallID: req.SipCallID,
		Event:     req.Event,
		Caller:    req.Caller,
		Recipient: req.Recipient,
		Direction: req.Direction,
		AgentID:   req.AgentID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, call)
}
