package handler

import (
	"time"

	"github.com/echodesk/backend/internal/application/social"
	domainSocial "github.com/echodesk/backend/internal/domain/social"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InboxHandler handles unified social inbox HTTP requests
type InboxHandler struct {
	BaseHandler
	inboxService *social.InboxService
}

// NewInboxHandler creates a new inbox handler
func NewInboxHandler(inboxService *social.InboxService) *InboxHandler {
	return &InboxHandler{
		inboxService: inboxService,
	}
}

// InboxListQuery filters the unified inbox.
type InboxListQuery struct {
	Platform  string `form:"platform" binding:"omitempty,oneof=facebook instagram whatsapp"`
	AccountID string `form:"account_id"`
	SenderID  string `form:"sender_id"`
	Unread    bool   `form:"unread"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List godoc
//
//	@ID				listInboxMessages
//	@Summary		List inbox messages
//	@Tags			social
//	@Produce		json
//	@Param			platform	query		string	false	"Platform"	Enums(facebook, instagram, whatsapp)
//	@Param			account_id	query		string	false	"Page or phone number account ID"
//	@Param			sender_id	query		string	false	"Conversation partner ID"
//	@Param			unread		query		bool	false	"Only unread messages"
//	@Param			from		query		string	false	"Start of range (RFC 3339)"
//	@Param			to			query		string	false	"End of range (RFC 3339)"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	APIResponse[[]social.MessageDTO]
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/inbox [get]
func (h *InboxHandler) List(c *gin.Context) {
	var query InboxListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	filter := domainSocial.MessageFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
		},
		Platform:  domainSocial.Platform(query.Platform),
		AccountID: query.AccountID,
		SenderID:  query.SenderID,
		Unread:    query.Unread,
	}
	if query.From != "" {
		if t, err := time.Parse(time.RFC3339, query.From); err == nil {
			filter.From = &t
		}
	}
	if query.To != "" {
		if t, err := time.Parse(time.RFC3339, query.To); err == nil {
			filter.To = &t
		}
	}

	result, err := h.inboxService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get godoc
//
//	@ID				getInboxMessage
//	@Summary		Get an inbox message
//	@Tags			social
//	@Produce		json
//	@Param			id	path		string	true	"Message ID"
//	@Success		200	{object}	APIResponse[social.MessageDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/inbox/{id} [get]
func (h *InboxHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid message ID")
		return
	}

	msg, err := h.inboxService.Get(c.Request.Context(), tenantID, messageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, msg)
}

// MarkRead godoc
//
//	@ID				markInboxMessageRead
//	@Summary		Mark a message as read
//	@Tags			social
//	@Produce		json
//	@Param			id	path		string	true	"Message ID"
//	@Success		200	{object}	APIResponse[social.MessageDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/inbox/{id}/read [post]
func (h *InboxHandler) MarkRead(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid message ID")
		return
	}

	msg, err := h.inboxService.MarkRead(c.Request.Context(), tenantID, messageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, msg)
}

// GetStats godoc
//
//	@ID				getInboxStats
//	@Summary		Count inbound traffic per platform
//	@Description	Aggregate inbound messages per platform over a period (defaults to the last 30 days)
//	@Tags			social
//	@Produce		json
//	@Param			from	query		string	false	"Start of range (RFC 3339)"
//	@Param			to		query		string	false	"End of range (RFC 3339)"
//	@Success		200		{object}	APIResponse[social.InboxStatsDTO]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/inbox/stats [get]
func (h *InboxHandler) GetStats(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}

	stats, err := h.inboxService.GetStats(c.Request.Context(), tenantID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
