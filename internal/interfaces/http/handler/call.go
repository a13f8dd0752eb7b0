package handler

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/application/crm"
	domainCRM "github.com/echodesk/backend/internal/domain/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CallHandler handles call lifecycle HTTP requests
type CallHandler struct {
	BaseHandler
	callService *crm.CallService
}

// NewCallHandler creates a new call handler
func NewCallHandler(callService *crm.CallService) *CallHandler {
	return &CallHandler{
		callService: callService,
	}
}

// Start godoc
//
//	@ID				startCall
//	@Summary		Open a new call
//	@Description	Open a call log in the initiated state
//	@Tags			calls
//	@Accept			json
//	@Produce		json
//	@Param			request	body		crm.StartCallInput	true	"Call start request"
//	@Success		201		{object}	APIResponse[crm.CallDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		500		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls [post]
func (h *CallHandler) Start(c *gin.Context) {
	var req crm.StartCallInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	call, err := h.callService.StartCall(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, call)
}

// Ring godoc
//
//	@ID				ringCall
//	@Summary		Mark a call as ringing
//	@Tags			calls
//	@Produce		json
//	@Param			id	path		string	true	"Call ID"
//	@Success		200	{object}	APIResponse[crm.CallDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/ring [post]
func (h *CallHandler) Ring(c *gin.Context) {
	h.transition(c, func(tenantID, callID uuid.UUID) (*crm.CallDTO, error) {
		return h.callService.Ring(c.Request.Context(), tenantID, callID)
	})
}

// Answer godoc
//
//	@ID				answerCall
//	@Summary		Answer a call
//	@Description	Answer a ringing or initiated call as the current agent
//	@Tags			calls
//	@Produce		json
//	@Param			id	path		string	true	"Call ID"
//	@Success		200	{object}	APIResponse[crm.CallDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/answer [post]
func (h *CallHandler) Answer(c *gin.Context) {
	h.agentTransition(c, h.callService.Answer)
}

// Hold godoc
//
//	@ID				holdCall
//	@Summary		Put a call on hold
//	@Tags			calls
//	@Produce		json
//	@Param			id	path		string	true	"Call ID"
//	@Success		200	{object}	APIResponse[crm.CallDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/hold [post]
func (h *CallHandler) Hold(c *gin.Context) {
	h.agentTransition(c, h.callService.Hold)
}

// Resume godoc
//
//	@ID				resumeCall
//	@Summary		Resume a held call
//	@Tags			calls
//	@Produce		json
//	@Param			id	path		string	true	"Call ID"
//	@Success		200	{object}	APIResponse[crm.CallDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/resume [post]
func (h *CallHandler) Resume(c *gin.Context) {
	h.agentTransition(c, h.callService.Resume)
}

// TransferCallRequest names the transfer target.
type TransferCallRequest struct {
	Target string `json:"target" binding:"required"`
}

// Transfer godoc
//
//	@ID				transferCall
//	@Summary		Transfer a call
//	@Description	Transfer an answered or held call to another extension
//	@Tags			calls
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Call ID"
//	@Param			request	body		TransferCallRequest	true	"Transfer request"
//	@Success		200		{object}	APIResponse[crm.CallDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		422		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/transfer [post]
func (h *CallHandler) Transfer(c *gin.Context) {
	var req TransferCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	h.agentTransition(c, func(ctx context.Context, tenantID, callID, agentID uuid.UUID) (*crm.CallDTO, error) {
		return h.callService.Transfer(ctx, tenantID, callID, agentID, req.Target)
	})
}

// End godoc
//
//	@ID				endCall
//	@Summary		End a call
//	@Description	End an answered call and record its duration
//	@Tags			calls
//	@Produce		json
//	@Param			id	path		string	true	"Call ID"
//	@Success		200	{object}	APIResponse[crm.CallDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/end [post]
func (h *CallHandler) End(c *gin.Context) {
	h.agentTransition(c, h.callService.End)
}

// CloseCallRequest records why an unanswered call closed.
type CloseCallRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=missed busy no_answer failed cancelled"`
}

// Close godoc
//
//	@ID				closeCall
//	@Summary		Close an unanswered call
//	@Description	Close a call that was never answered with a terminal outcome
//	@Tags			calls
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Call ID"
//	@Param			request	body		CloseCallRequest	true	"Close request"
//	@Success		200		{object}	APIResponse[crm.CallDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		422		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/close [post]
func (h *CallHandler) Close(c *gin.Context) {
	var req CloseCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	h.transition(c, func(tenantID, callID uuid.UUID) (*crm.CallDTO, error) {
		return h.callService.CloseUnanswered(c.Request.Context(), tenantID, callID, req.Outcome)
	})
}

// CallNoteRequest carries free-form agent notes.
type CallNoteRequest struct {
	Notes string `json:"notes" binding:"required,max=4000"`
}

// AddNote godoc
//
//	@ID				addCallNote
//	@Summary		Attach notes to a call
//	@Tags			calls
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Call ID"
//	@Param			request	body		CallNoteRequest	true	"Note request"
//	@Success		200		{object}	APIResponse[crm.CallDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/notes [post]
func (h *CallHandler) AddNote(c *gin.Context) {
	var req CallNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	h.transition(c, func(tenantID, callID uuid.UUID) (*crm.CallDTO, error) {
		return h.callService.AddNote(c.Request.Context(), tenantID, callID, req.Notes)
	})
}

// CallQualityRequest rates a finished call.
type CallQualityRequest struct {
	Score float64 `json:"score" binding:"required"`
}

// SetQuality godoc
//
//	@ID				setCallQuality
//	@Summary		Score a finished call
//	@Description	Record a quality score between 0 and 5 on an ended call
//	@Tags			calls
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Call ID"
//	@Param			request	body		CallQualityRequest	true	"Quality request"
//	@Success		200		{object}	APIResponse[crm.CallDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		422		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/quality [post]
func (h *CallHandler) SetQuality(c *gin.Context) {
	var req CallQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	h.transition(c, func(tenantID, callID uuid.UUID) (*crm.CallDTO, error) {
		return h.callService.SetQualityScore(c.Request.Context(), tenantID, callID, req.Score)
	})
}

// Get godoc
//
//	@ID				getCall
//	@Summary		Get a call with its timeline
//	@Tags			calls
//	@Produce		json
//	@Param			id	path		string	true	"Call ID"
//	@Success		200	{object}	APIResponse[crm.CallDetailDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id} [get]
func (h *CallHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid call ID")
		return
	}

	call, err := h.callService.Get(c.Request.Context(), tenantID, callID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, call)
}

// CallListQuery filters the call log listing.
type CallListQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=initiated ringing answered on_hold recording transferred ended missed busy no_answer failed cancelled"`
	Direction string `form:"direction" binding:"omitempty,oneof=inbound outbound"`
	HandledBy string `form:"handled_by" binding:"omitempty,uuid"`
	ClientID  string `form:"client_id" binding:"omitempty,uuid"`
	Number    string `form:"number"`
	From      string `form:"from" binding:"omitempty"`
	To        string `form:"to" binding:"omitempty"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List godoc
//
//	@ID				listCalls
//	@Summary		List call logs
//	@Tags			calls
//	@Produce		json
//	@Param			status		query		string	false	"Call status"
//	@Param			direction	query		string	false	"Call direction"	Enums(inbound, outbound)
//	@Param			handled_by	query		string	false	"Agent ID"
//	@Param			client_id	query		string	false	"Client ID"
//	@Param			number		query		string	false	"Caller or recipient number"
//	@Param			from		query		string	false	"Start of range (RFC 3339)"
//	@Param			to			query		string	false	"End of range (RFC 3339)"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	APIResponse[[]crm.CallDTO]
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls [get]
func (h *CallHandler) List(c *gin.Context) {
	var query CallListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	filter := domainCRM.CallLogFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
		},
		Status:    domainCRM.CallStatus(query.Status),
		Direction: domainCRM.CallDirection(query.Direction),
		Number:    query.Number,
	}
	if query.HandledBy != "" {
		id, _ := uuid.Parse(query.HandledBy)
		filter.HandledBy = &id
	}
	if query.ClientID != "" {
		id, _ := uuid.Parse(query.ClientID)
		filter.ClientID = &id
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

	result, err := h.callService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ListLive godoc
//
//	@ID				listLiveCalls
//	@Summary		List in-flight calls
//	@Description	List calls that have not yet reached a terminal state
//	@Tags			calls
//	@Produce		json
//	@Success		200	{object}	APIResponse[[]crm.CallDTO]
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/live [get]
func (h *CallHandler) ListLive(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	calls, err := h.callService.ListLive(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, calls)
}

// GetStats godoc
//
//	@ID				getCallStats
//	@Summary		Aggregate call outcomes
//	@Description	Count calls by terminal status over a period (defaults to the last 30 days)
//	@Tags			calls
//	@Produce		json
//	@Param			from	query		string	false	"Start of range (RFC 3339)"
//	@Param			to		query		string	false	"End of range (RFC 3339)"
//	@Success		200		{object}	APIResponse[crm.CallStatsDTO]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/stats [get]
func (h *CallHandler) GetStats(c *gin.Context) {
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

	stats, err := h.callService.GetStats(c.Request.Context(), tenantID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// transition runs a lifecycle step that needs only the call ID.
func (h *CallHandler) transition(c *gin.Context, fn func(tenantID, callID uuid.UUID) (*crm.CallDTO, error)) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid call ID")
		return
	}

	call, err := fn(tenantID, callID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, call)
}

// agentTransition runs a lifecycle step attributed to the current agent.
func (h *CallHandler) agentTransition(c *gin.Context, fn func(ctx context.Context, tenantID, callID, agentID uuid.UUID) (*crm.CallDTO, error)) {
	agentID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	h.transition(c, func(tenantID, callID uuid.UUID) (*crm.CallDTO, error) {
		return fn(c.Request.Context(), tenantID, callID, agentID)
	})
}
