package handler

import (
	"github.com/echodesk/backend/internal/application/ticket"
	"github.com/echodesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BoardHandler handles ticket board column HTTP requests
type BoardHandler struct {
	BaseHandler
	boardService *ticket.BoardService
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService *ticket.BoardService) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
	}
}

// CreateColumn godoc
//
//	@ID				createBoardColumn
//	@Summary		Create a board column
//	@Tags			board
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ticket.CreateColumnInput	true	"Column creation request"
//	@Success		201		{object}	APIResponse[ticket.ColumnDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/columns [post]
func (h *BoardHandler) CreateColumn(c *gin.Context) {
	var req ticket.CreateColumnInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	col, err := h.boardService.CreateColumn(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, col)
}

// ListColumns godoc
//
//	@ID				listBoardColumns
//	@Summary		List board columns in order
//	@Tags			board
//	@Produce		json
//	@Success		200	{object}	APIResponse[[]ticket.ColumnDTO]
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/columns [get]
func (h *BoardHandler) ListColumns(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	cols, err := h.boardService.ListColumns(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cols)
}

// UpdateColumn godoc
//
//	@ID				updateBoardColumn
//	@Summary		Update a board column
//	@Tags			board
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Column ID"
//	@Param			request	body		ticket.UpdateColumnInput	true	"Column update request"
//	@Success		200		{object}	APIResponse[ticket.ColumnDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/columns/{id} [put]
func (h *BoardHandler) UpdateColumn(c *gin.Context) {
	var req ticket.UpdateColumnInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

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

	col, err := h.boardService.UpdateColumn(c.Request.Context(), tenantID, columnID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, col)
}

// SetDefaultColumn godoc
//
//	@ID				setDefaultBoardColumn
//	@Summary		Make a column the board default
//	@Description	New tickets without a column and tickets from deleted columns land here
//	@Tags			board
//	@Produce		json
//	@Param			id	path		string	true	"Column ID"
//	@Success		200	{object}	APIResponse[ticket.ColumnDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/columns/{id}/default [post]
func (h *BoardHandler) SetDefaultColumn(c *gin.Context) {
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

	col, err := h.boardService.SetDefaultColumn(c.Request.Context(), tenantID, columnID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, col)
}

// ReorderColumnsRequest lists every column ID in its new order.
type ReorderColumnsRequest struct {
	ColumnIDs []uuid.UUID `json:"column_ids" binding:"required,min=1"`
}

// ReorderColumns godoc
//
//	@ID				reorderBoardColumns
//	@Summary		Reorder board columns
//	@Description	Apply a full ordering; the request must name every column exactly once
//	@Tags			board
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ReorderColumnsRequest	true	"New column order"
//	@Success		200		{object}	APIResponse[[]ticket.ColumnDTO]
//	@Failure		422		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/columns/reorder [post]
func (h *BoardHandler) ReorderColumns(c *gin.Context) {
	var req ReorderColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	cols, err := h.boardService.ReorderColumns(c.Request.Context(), tenantID, req.ColumnIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cols)
}

// DeleteColumn godoc
//
//	@ID				deleteBoardColumn
//	@Summary		Delete a board column
//	@Description	Move the column's tickets to the default column, then remove it
//	@Tags			board
//	@Produce		json
//	@Param			id	path		string	true	"Column ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/tickets/columns/{id} [delete]
func (h *BoardHandler) DeleteColumn(c *gin.Context) {
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

	if err := h.boardService.DeleteColumn(c.Request.Context(), tenantID, columnID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Column deleted"})
}
