package handler

import (
	"github.com/echodesk/backend/internal/application/billing"
	domainBilling "github.com/echodesk/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// UsageHandler exposes the tenant's subscription usage and feature
// gates.
type UsageHandler struct {
	BaseHandler
	quotaService *billing.QuotaService
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(quotaService *billing.QuotaService) *UsageHandler {
	return &UsageHandler{
		quotaService: quotaService,
	}
}

// GetSummary godoc
//
//	@ID				getUsageSummary
//	@Summary		Get subscription usage
//	@Description	Report seat, message, and storage consumption against the package limits
//	@Tags			billing
//	@Produce		json
//	@Success		200	{object}	APIResponse[billing.UsageSummaryDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/usage [get]
func (h *UsageHandler) GetSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	summary, err := h.quotaService.GetUsageSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// FeatureCheckResponse reports one gate.
type FeatureCheckResponse struct {
	Feature string `json:"feature"`
	Enabled bool   `json:"enabled"`
}

// CheckFeature godoc
//
//	@ID				checkFeature
//	@Summary		Check a feature gate
//	@Tags			billing
//	@Produce		json
//	@Param			key	path		string	true	"Feature key"
//	@Success		200	{object}	APIResponse[FeatureCheckResponse]
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/billing/features/{key} [get]
func (h *UsageHandler) CheckFeature(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	key := domainBilling.FeatureKey(c.Param("key"))
	enabled, err := h.quotaService.HasFeature(c.Request.Context(), tenantID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, FeatureCheckResponse{Feature: string(key), Enabled: enabled})
}
