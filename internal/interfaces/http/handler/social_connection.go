package handler

import (
	"github.com/echodesk/backend/internal/application/social"
	"github.com/echodesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SocialConnectionHandler handles platform account link HTTP requests
type SocialConnectionHandler struct {
	BaseHandler
	connectionService *social.ConnectionService
}

// NewSocialConnectionHandler creates a new social connection handler
func NewSocialConnectionHandler(connectionService *social.ConnectionService) *SocialConnectionHandler {
	return &SocialConnectionHandler{
		connectionService: connectionService,
	}
}

// Connect godoc
//
//	@ID				connectSocialAccount
//	@Summary		Link a platform account
//	@Description	Link a Facebook, Instagram, or WhatsApp account for webhook routing
//	@Tags			social
//	@Accept			json
//	@Produce		json
//	@Param			request	body		social.ConnectInput	true	"Connection request"
//	@Success		201		{object}	APIResponse[social.ConnectionDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		409		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/connections [post]
func (h *SocialConnectionHandler) Connect(c *gin.Context) {
	var req social.ConnectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	conn, err := h.connectionService.Connect(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, conn)
}

// List godoc
//
//	@ID				listSocialConnections
//	@Summary		List linked platform accounts
//	@Tags			social
//	@Produce		json
//	@Success		200	{object}	APIResponse[[]social.ConnectionDTO]
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/connections [get]
func (h *SocialConnectionHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	conns, err := h.connectionService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, conns)
}

// RotateTokenRequest replaces a connection's access token.
type RotateTokenRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

// RotateToken godoc
//
//	@ID				rotateSocialToken
//	@Summary		Rotate a connection's access token
//	@Tags			social
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Connection ID"
//	@Param			request	body		RotateTokenRequest	true	"New token"
//	@Success		200		{object}	APIResponse[dto.MessageResponse]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/connections/{id}/token [put]
func (h *SocialConnectionHandler) RotateToken(c *gin.Context) {
	var req RotateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}

	if err := h.connectionService.RotateToken(c.Request.Context(), tenantID, connectionID, req.AccessToken); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Access token rotated"})
}

// Disconnect godoc
//
//	@ID				disconnectSocialAccount
//	@Summary		Disconnect a platform account
//	@Description	Stop routing webhooks to the connection without deleting it
//	@Tags			social
//	@Produce		json
//	@Param			id	path		string	true	"Connection ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/connections/{id}/disconnect [post]
func (h *SocialConnectionHandler) Disconnect(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}

	if err := h.connectionService.Disconnect(c.Request.Context(), tenantID, connectionID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Connection disconnected"})
}

// Delete godoc
//
//	@ID				deleteSocialConnection
//	@Summary		Delete a platform connection
//	@Tags			social
//	@Produce		json
//	@Param			id	path		string	true	"Connection ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/social/connections/{id} [delete]
func (h *SocialConnectionHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid connection ID")
		return
	}

	if err := h.connectionService.Delete(c.Request.Context(), tenantID, connectionID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Connection deleted"})
}
