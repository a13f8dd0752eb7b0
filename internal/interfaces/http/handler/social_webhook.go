package handler

import (
	"net/http"

	"github.com/echodesk/backend/internal/application/social"
	domainSocial "github.com/echodesk/backend/internal/domain/social"
	"github.com/gin-gonic/gin"
)

// SocialWebhookHandler receives Meta platform webhooks. The GET route
// answers the subscription handshake; the POST route ingests message
// deliveries.
type SocialWebhookHandler struct {
	BaseHandler
	webhookService *social.WebhookService
}

// NewSocialWebhookHandler creates a new social webhook handler
func NewSocialWebhookHandler(webhookService *social.WebhookService) *SocialWebhookHandler {
	return &SocialWebhookHandler{
		webhookService: webhookService,
	}
}

// Verify godoc
//
//	@ID				verifySocialWebhook
//	@Summary		Answer the Meta webhook handshake
//	@Description	Echo hub.challenge back as plain text when the verify token matches
//	@Tags			webhooks
//	@Produce		plain
//	@Param			platform		path		string	true	"Platform"	Enums(facebook, instagram, whatsapp)
//	@Param			hub.mode		query		string	true	"Handshake mode"
//	@Param			hub.verify_token	query	string	true	"Verify token"
//	@Param			hub.challenge	query		string	true	"Challenge to echo"
//	@Success		200				{string}	string	"Challenge"
//	@Failure		403				{object}	dto.ErrorResponse
//	@Router			/webhooks/{platform} [get]
func (h *SocialWebhookHandler) Verify(c *gin.Context) {
	platform := domainSocial.Platform(c.Param("platform"))
	if !platform.IsValid() {
		h.NotFound(c, "Unknown platform")
		return
	}

	challenge, err := h.webhookService.VerifySubscription(
		platform,
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.String(http.StatusOK, challenge)
}

// Receive godoc
//
//	@ID				receiveSocialWebhook
//	@Summary		Ingest a webhook delivery
//	@Description	Verify the payload signature, then store its messages with dedup on the platform message ID
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			platform	path		string	true	"Platform"	Enums(facebook, instagram, whatsapp)
//	@Success		200			{object}	APIResponse[social.IngestReport]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		403			{object}	dto.ErrorResponse
//	@Router			/webhooks/{platform} [post]
func (h *SocialWebhookHandler) Receive(c *gin.Context) {
	platform := domainSocial.Platform(c.Param("platform"))
	if !platform.IsValid() {
		h.NotFound(c, "Unknown platform")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Unreadable request body")
		return
	}

	if err := h.webhookService.VerifySignature(body, c.GetHeader("X-Hub-Signature-256")); err != nil {
		h.HandleError(c, err)
		return
	}

	report, err := h.webhookService.ProcessPayload(c.Request.Context(), platform, body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
