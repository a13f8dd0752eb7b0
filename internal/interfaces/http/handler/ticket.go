package handler

import (
	"github.com/echodesk/backend/internal/application/ticket"
	"github.com/echodesk/backend/internal/domain/shared"
	domainTicket "github.com/echodesk/backend/internal/domain/ticket"
	"github.com/echodesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TicketHandler handles ticket HTTP requests
type TicketHandler struct {
	BaseHandler
	ticketService *ticket.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ticketService *ticket.TicketService) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
	}
}

// Create godoc
//
//	@ID				createTicket
//	@Summary		Create a ticket
//	@Description	Create a ticket; without a column it lands in the board default
//	@Tags			tickets
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ticket.CreateTicketInput	true	"Ticket creation request"
//	@Success		201		{object}	APIResponse[ticket.TicketDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets [post]
func (h *TicketHandler) Create(c *gin.Context) {
	var req ticket.CreateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	createdBy, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	t, err := h.ticketService.Create(c.Request.Context(), tenantID, createdBy, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, t)
}

// Get godoc
//
//	@ID				getTicket
//	@Summary		Get a ticket
//	@Tags			tickets
//	@Produce		json
//	@Param			id	path		string	true	"Ticket ID"
//	@Success		200	{object}	APIResponse[ticket.TicketDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/{id} [get]
func (h *TicketHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ticket ID")
		return
	}

	t, err := h.ticketService.Get(c.Request.Context(), tenantID, ticketID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, t)
}

// TicketListQuery filters the ticket listing.
type TicketListQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=open in_progress resolved closed"`
	Priority   string `form:"priority" binding:"omitempty,oneof=low medium high critical"`
	ColumnID   string `form:"column_id" binding:"omitempty,uuid"`
	AssignedTo string `form:"assigned_to" binding:"omitempty,uuid"`
	Tag        string `form:"tag"`
	Search     string `form:"search"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List godoc
//
//	@ID				listTickets
//	@Summary		List tickets
//	@Tags			tickets
//	@Produce		json
//	@Param			status		query		string	false	"Ticket status"		Enums(open, in_progress, resolved, closed)
//	@Param			priority	query		string	false	"Ticket priority"	Enums(low, medium, high, critical)
//	@Param			column_id	query		string	false	"Column ID"
//	@Param			assigned_to	query		string	false	"Assignee ID"
//	@Param			tag			query		string	false	"Tag"
//	@Param			search		query		string	false	"Match title"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	APIResponse[[]ticket.TicketDTO]
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets [get]
func (h *TicketHandler) List(c *gin.Context) {
	var query TicketListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	filter := domainTicket.TicketFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
		},
		Status:   domainTicket.Status(query.Status),
		Priority: domainTicket.Priority(query.Priority),
		Tag:      query.Tag,
		Search:   query.Search,
	}
	if query.ColumnID != "" {
		id, _ := uuid.Parse(query.ColumnID)
		filter.ColumnID = &id
	}
	if query.AssignedTo != "" {
		id, _ := uuid.Parse(query.AssignedTo)
		filter.AssignedTo = &id
	}

	result, err := h.ticketService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ListByColumn godoc
//
//	@ID				listColumnTickets
//	@Summary		List a column's tickets in position order
//	@Tags			tickets
//	@Produce		json
//	@Param			id	path		string	true	"Column ID"
//	@Success		200	{object}	APIResponse[[]ticket.TicketDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/columns/{id}/tickets [get]
func (h *TicketHandler) ListByColumn(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	columnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid column ID")
		return
	}

	tickets, err := h.ticketService.ListByColumn(c.Request.Context(), tenantID, columnID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tickets)
}

// Update godoc
//
//	@ID				updateTicket
//	@Summary		Update a ticket
//	@Tags			tickets
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Ticket ID"
//	@Param			request	body		ticket.UpdateTicketInput	true	"Ticket update request"
//	@Success		200		{object}	APIResponse[ticket.TicketDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/{id} [put]
func (h *TicketHandler) Update(c *gin.Context) {
	var req ticket.UpdateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ticket ID")
		return
	}

	t, err := h.ticketService.Update(c.Request.Context(), tenantID, ticketID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, t)
}

// Move godoc
//
//	@ID				moveTicket
//	@Summary		Move a ticket
//	@Description	Place a ticket in a column; without a position it appends to the bottom
//	@Tags			tickets
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Ticket ID"
//	@Param			request	body		ticket.MoveTicketInput	true	"Move request"
//	@Success		200		{object}	APIResponse[ticket.TicketDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/{id}/move [post]
func (h *TicketHandler) Move(c *gin.Context) {
	var req ticket.MoveTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ticket ID")
		return
	}

	t, err := h.ticketService.Move(c.Request.Context(), tenantID, ticketID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, t)
}

// AssignTicketRequest names the assignee.
type AssignTicketRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// Assign godoc
//
//	@ID				assignTicket
//	@Summary		Assign a ticket
//	@Tags			tickets
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Ticket ID"
//	@Param			request	body		AssignTicketRequest	true	"Assignment request"
//	@Success		200		{object}	APIResponse[ticket.TicketDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/{id}/assign [post]
func (h *TicketHandler) Assign(c *gin.Context) {
	var req AssignTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ticket ID")
		return
	}

	t, err := h.ticketService.Assign(c.Request.Context(), tenantID, ticketID, req.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, t)
}

// Delete godoc
//
//	@ID				deleteTicket
//	@Summary		Delete a ticket
//	@Tags			tickets
//	@Produce		json
//	@Param			id	path		string	true	"Ticket ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/{id} [delete]
func (h *TicketHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ticket ID")
		return
	}

	if err := h.ticketService.Delete(c.Request.Context(), tenantID, ticketID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Ticket deleted"})
}

// TicketCommentRequest carries the comment body.
type TicketCommentRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}

// AddComment godoc
//
//	@ID				addTicketComment
//	@Summary		Comment on a ticket
//	@Tags			tickets
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Ticket ID"
//	@Param			request	body		TicketCommentRequest	true	"Comment body"
//	@Success		201		{object}	APIResponse[ticket.CommentDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/{id}/comments [post]
func (h *TicketHandler) AddComment(c *gin.Context) {
	var req TicketCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ticket ID")
		return
	}

	comment, err := h.ticketService.AddComment(c.Request.Context(), tenantID, ticketID, userID, req.Body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, comment)
}

// EditComment godoc
//
//	@ID				editTicketComment
//	@Summary		Edit a comment
//	@Description	Edit a comment; only its author may change it
//	@Tags			tickets
//	@Accept			json
//	@Produce		json
//	@Param			commentId	path		string					true	"Comment ID"
//	@Param			request		body		TicketCommentRequest	true	"New body"
//	@Success		200			{object}	APIResponse[ticket.CommentDTO]
//	@Failure		403			{object}	dto.ErrorResponse
//	@Failure		404			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/comments/{commentId} [put]
func (h *TicketHandler) EditComment(c *gin.Context) {
	var req TicketCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	commentID, err := uuid.Parse(c.Param("commentId"))
	if err != nil {
		h.BadRequest(c, "Invalid comment ID")
		return
	}

	comment, err := h.ticketService.EditComment(c.Request.Context(), tenantID, commentID, userID, req.Body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, comment)
}

// ListComments godoc
//
//	@ID				listTicketComments
//	@Summary		List a ticket's comments
//	@Tags			tickets
//	@Produce		json
//	@Param			id	path		string	true	"Ticket ID"
//	@Success		200	{object}	APIResponse[[]ticket.CommentDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/{id}/comments [get]
func (h *TicketHandler) ListComments(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ticket ID")
		return
	}

	comments, err := h.ticketService.ListComments(c.Request.Context(), tenantID, ticketID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, comments)
}
