package handler

import (
	"github.com/echodesk/backend/internal/application/crm"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClientHandler handles CRM contact HTTP requests
type ClientHandler struct {
	BaseHandler
	clientService *crm.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService *crm.ClientService) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
	}
}

// Create godoc
//
//	@ID				createClient
//	@Summary		Create a contact
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			request	body		crm.CreateClientInput	true	"Contact creation request"
//	@Success		201		{object}	APIResponse[crm.ClientDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		409		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req crm.CreateClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, client)
}

// Get godoc
//
//	@ID				getClient
//	@Summary		Get a contact
//	@Tags			clients
//	@Produce		json
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	APIResponse[crm.ClientDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/clients/{id} [get]
func (h *ClientHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	client, err := h.clientService.Get(c.Request.Context(), tenantID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// ClientListQuery paginates and searches contacts.
type ClientListQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List godoc
//
//	@ID				listClients
//	@Summary		List contacts
//	@Tags			clients
//	@Produce		json
//	@Param			search		query		string	false	"Match name, email, phone, or company"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	APIResponse[[]crm.ClientDTO]
//	@Failure		401			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	var query ClientListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	filter := shared.Filter{
		Page:     query.Page,
		PageSize: query.PageSize,
		Search:   query.Search,
	}

	result, err := h.clientService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update godoc
//
//	@ID				updateClient
//	@Summary		Update a contact
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Client ID"
//	@Param			request	body		crm.UpdateClientInput	true	"Contact update request"
//	@Success		200		{object}	APIResponse[crm.ClientDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/clients/{id} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	var req crm.UpdateClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), tenantID, clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Deactivate godoc
//
//	@ID				deactivateClient
//	@Summary		Deactivate a contact
//	@Description	Hide a contact from lookups while keeping its call history
//	@Tags			clients
//	@Produce		json
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/clients/{id}/deactivate [post]
func (h *ClientHandler) Deactivate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	if err := h.clientService.Deactivate(c.Request.Context(), tenantID, clientID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Client deactivated"})
}

// Delete godoc
//
//	@ID				deleteClient
//	@Summary		Delete a contact
//	@Tags			clients
//	@Produce		json
//	@Param			id	path		string	true	"Client ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/clients/{id} [delete]
func (h *ClientHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID")
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), tenantID, clientID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Client deleted"})
}
