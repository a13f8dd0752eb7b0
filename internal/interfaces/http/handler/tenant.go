package handler

import (
	"context"

	"github.com/echodesk/backend/internal/application/identity"
	"github.com/echodesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantHandler handles tenant management HTTP requests
type TenantHandler struct {
	BaseHandler
	tenantService *identity.TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *identity.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// transition runs a status-changing service call keyed by the id path param.
func (h *TenantHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*identity.TenantDTO, error)) {
	id, ok := h.pathUUID(c, "id", "Invalid tenant ID")
	if !ok {
		return
	}

	tenant, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(tenant))
}

// Create godoc
// @Summary      Provision a new tenant
// @Description  Provision a new tenant workspace with its own schema
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        request body CreateTenantRequest true "Tenant creation request"
// @Success      201 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), identity.CreateTenantInput{
		Schema:            req.Schema,
		Name:              req.Name,
		AdminEmail:        req.AdminEmail,
		AdminName:         req.AdminName,
		Domain:            req.Domain,
		FrontendURL:       req.FrontendURL,
		PreferredLanguage: req.PreferredLanguage,
		Plan:              req.Plan,
		TrialDays:         req.TrialDays,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toTenantResponse(tenant))
}

// GetByID godoc
// @Summary      Get a tenant by ID
// @Description  Retrieve a tenant by its ID
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/{id} [get]
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "Invalid tenant ID")
	if !ok {
		return
	}

	tenant, err := h.tenantService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(tenant))
}

// GetBySchema godoc
// @Summary      Get a tenant by schema
// @Description  Retrieve a tenant by its schema name
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        schema path string true "Tenant schema name"
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/schema/{schema} [get]
func (h *TenantHandler) GetBySchema(c *gin.Context) {
	schema := c.Param("schema")
	if schema == "" {
		h.BadRequest(c, "Tenant schema is required")
		return
	}

	tenant, err := h.tenantService.GetBySchema(c.Request.Context(), schema)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(tenant))
}

// List godoc
// @Summary      List tenants
// @Description  Get a paginated list of tenants
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        keyword query string false "Search keyword"
// @Param        status query string false "Tenant status" Enums(trial, active, suspended, inactive)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        sort_by query string false "Sort by field" Enums(schema, name, status, plan, created_at, updated_at)
// @Param        sort_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=TenantListResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	var query TenantListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := identity.TenantFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		SortBy:   query.SortBy,
		SortDir:  query.SortDir,
		Keyword:  query.Keyword,
		Status:   query.Status,
	}

	result, err := h.tenantService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantListResponse(result))
}

// Update godoc
// @Summary      Update a tenant
// @Description  Update a tenant's information
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Param        request body UpdateTenantRequest true "Tenant update request"
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/{id} [put]
func (h *TenantHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "Invalid tenant ID")
	if !ok {
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenant, err := h.tenantService.Update(c.Request.Context(), identity.UpdateTenantInput{
		ID:                id,
		Name:              req.Name,
		AdminName:         req.AdminName,
		Domain:            req.Domain,
		FrontendURL:       req.FrontendURL,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(tenant))
}

// SetPlan godoc
// @Summary      Set tenant plan
// @Description  Update a tenant's subscription plan
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Param        request body SetTenantPlanRequest true "Plan update request"
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/{id}/plan [put]
func (h *TenantHandler) SetPlan(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "Invalid tenant ID")
	if !ok {
		return
	}

	var req SetTenantPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenant, err := h.tenantService.SetPlan(c.Request.Context(), id, req.Plan)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(tenant))
}

// Activate godoc
// @Summary      Activate a tenant
// @Description  Activate a tenant account
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/{id}/activate [post]
func (h *TenantHandler) Activate(c *gin.Context) {
	h.transition(c, h.tenantService.Activate)
}

// Deactivate godoc
// @Summary      Deactivate a tenant
// @Description  Deactivate a tenant account, retaining its data
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/{id}/deactivate [post]
func (h *TenantHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.tenantService.Deactivate)
}

// Suspend godoc
// @Summary      Suspend a tenant
// @Description  Suspend a tenant account, usually for non-payment
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Param        request body SuspendTenantRequest false "Suspension reason"
// @Success      200 {object} dto.Response{data=TenantResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/{id}/suspend [post]
func (h *TenantHandler) Suspend(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "Invalid tenant ID")
	if !ok {
		return
	}

	var req SuspendTenantRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	tenant, err := h.tenantService.Suspend(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTenantResponse(tenant))
}

// Delete godoc
// @Summary      Delete a tenant
// @Description  Delete a tenant from the system (only inactive tenants can be deleted)
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/{id} [delete]
func (h *TenantHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id", "Invalid tenant ID")
	if !ok {
		return
	}

	if err := h.tenantService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Tenant deleted successfully"})
}

// GetStats godoc
// @Summary      Get tenant statistics
// @Description  Get statistics about tenants in the system
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=TenantStatsResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/stats [get]
func (h *TenantHandler) GetStats(c *gin.Context) {
	stats, err := h.tenantService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, TenantStatsResponse{
		Total:     stats.Total,
		Active:    stats.Active,
		Trial:     stats.Trial,
		Inactive:  stats.Inactive,
		Suspended: stats.Suspended,
	})
}

// Count godoc
// @Summary      Get tenant count
// @Description  Get the total number of tenants
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=object{count=int64}}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /identity/tenants/stats/count [get]
func (h *TenantHandler) Count(c *gin.Context) {
	count, err := h.tenantService.Count(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"count": count})
}

func toTenantResponse(tenant *identity.TenantDTO) *TenantResponse {
	return &TenantResponse{
		ID:                tenant.ID,
		Schema:            tenant.Schema,
		Name:              tenant.Name,
		Domain:            tenant.Domain,
		AdminEmail:        tenant.AdminEmail,
		AdminName:         tenant.AdminName,
		FrontendURL:       tenant.FrontendURL,
		PreferredLanguage: tenant.PreferredLanguage,
		Status:            tenant.Status,
		Plan:              tenant.Plan,
		SuspendedReason:   tenant.SuspendedReason,
		TrialEndsAt:       tenant.TrialEndsAt,
		CreatedAt:         tenant.CreatedAt,
		UpdatedAt:         tenant.UpdatedAt,
	}
}

func toTenantListResponse(result *identity.TenantListResult) *TenantListResponse {
	tenants := make([]TenantResponse, len(result.Tenants))
	for i, tenant := range result.Tenants {
		tenants[i] = *toTenantResponse(&tenant)
	}

	return &TenantListResponse{
		Tenants:    tenants,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
}
