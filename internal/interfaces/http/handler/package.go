package handler

import (
	"github.com/echodesk/backend/internal/application/billing"
	"github.com/echodesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PackageHandler handles subscription package HTTP requests. The
// active-package listing is public so the pricing page can render
// without a session; everything else is platform administration.
type PackageHandler struct {
	BaseHandler
	packageService *billing.PackageService
}

// NewPackageHandler creates a new package handler
func NewPackageHandler(packageService *billing.PackageService) *PackageHandler {
	return &PackageHandler{
		packageService: packageService,
	}
}

// ListActive godoc
//
//	@ID				listActivePackages
//	@Summary		List purchasable packages
//	@Tags			packages
//	@Produce		json
//	@Success		200	{object}	APIResponse[[]billing.PackageDTO]
//	@Router			/billing/packages [get]
func (h *PackageHandler) ListActive(c *gin.Context) {
	pkgs, err := h.packageService.ListActive(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pkgs)
}

// ListAll godoc
//
//	@ID				listAllPackages
//	@Summary		List every package including retired ones
//	@Tags			packages
//	@Produce		json
//	@Success		200	{object}	APIResponse[[]billing.PackageDTO]
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/packages/all [get]
func (h *PackageHandler) ListAll(c *gin.Context) {
	pkgs, err := h.packageService.ListAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pkgs)
}

// Get godoc
//
//	@ID				getPackage
//	@Summary		Get a package
//	@Tags			packages
//	@Produce		json
//	@Param			id	path		string	true	"Package ID"
//	@Success		200	{object}	APIResponse[billing.PackageDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/packages/{id} [get]
func (h *PackageHandler) Get(c *gin.Context) {
	packageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid package ID")
		return
	}

	pkg, err := h.packageService.Get(c.Request.Context(), packageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pkg)
}

// Create godoc
//
//	@ID				createPackage
//	@Summary		Create a package
//	@Tags			packages
//	@Accept			json
//	@Produce		json
//	@Param			request	body		billing.CreatePackageInput	true	"Package creation request"
//	@Success		201		{object}	APIResponse[billing.PackageDTO]
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		409		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/packages [post]
func (h *PackageHandler) Create(c *gin.Context) {
	var req billing.CreatePackageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	pkg, err := h.packageService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, pkg)
}

// Update godoc
//
//	@ID				updatePackage
//	@Summary		Update a package
//	@Tags			packages
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Package ID"
//	@Param			request	body		billing.UpdatePackageInput	true	"Package update request"
//	@Success		200		{object}	APIResponse[billing.PackageDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/packages/{id} [put]
func (h *PackageHandler) Update(c *gin.Context) {
	var req billing.UpdatePackageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	packageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid package ID")
		return
	}

	pkg, err := h.packageService.Update(c.Request.Context(), packageID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pkg)
}

// Retire godoc
//
//	@ID				retirePackage
//	@Summary		Retire a package
//	@Description	Stop selling a package; existing subscriptions keep running on it
//	@Tags			packages
//	@Produce		json
//	@Param			id	path		string	true	"Package ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/packages/{id}/retire [post]
func (h *PackageHandler) Retire(c *gin.Context) {
	packageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid package ID")
		return
	}

	if err := h.packageService.Retire(c.Request.Context(), packageID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Package retired"})
}

// Reactivate godoc
//
//	@ID				reactivatePackage
//	@Summary		Reactivate a retired package
//	@Tags			packages
//	@Produce		json
//	@Param			id	path		string	true	"Package ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/packages/{id}/reactivate [post]
func (h *PackageHandler) Reactivate(c *gin.Context) {
	packageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid package ID")
		return
	}

	if err := h.packageService.Reactivate(c.Request.Context(), packageID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Package reactivated"})
}
