package handler

import (
	"time"

	"github.com/google/uuid"
)

// =====================
// Tenant Request DTOs
// =====================

// CreateTenantRequest represents the request body for provisioning a tenant
type CreateTenantRequest struct {
	Schema            string `json:"schema" binding:"required,min=2,max=63"`
	Name              string `json:"name" binding:"required,min=1,max=200"`
	AdminEmail        string `json:"admin_email" binding:"required,email,max=200"`
	AdminName         string `json:"admin_name" binding:"omitempty,max=200"`
	Domain            string `json:"domain" binding:"omitempty,max=200"`
	FrontendURL       string `json:"frontend_url" binding:"omitempty,url,max=500"`
	PreferredLanguage string `json:"preferred_language" binding:"omitempty,max=10"`
	Plan              string `json:"plan" binding:"omitempty,oneof=trial starter professional enterprise"`
	TrialDays         int    `json:"trial_days" binding:"omitempty,min=1,max=365"`
}

// UpdateTenantRequest represents the request body for updating a tenant
// @name HandlerUpdateTenantRequest
type UpdateTenantRequest struct {
	Name              *string `json:"name" binding:"omitempty,min=1,max=200"`
	AdminName         *string `json:"admin_name" binding:"omitempty,max=200"`
	Domain            *string `json:"domain" binding:"omitempty,max=200"`
	FrontendURL       *string `json:"frontend_url" binding:"omitempty,max=500"`
	PreferredLanguage *string `json:"preferred_language" binding:"omitempty,max=10"`
}

// SetTenantPlanRequest represents the request body for setting tenant plan
type SetTenantPlanRequest struct {
	Plan string `json:"plan" binding:"required,oneof=trial starter professional enterprise"`
}

// SuspendTenantRequest represents the request body for suspending a tenant
type SuspendTenantRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// TenantListQuery represents query parameters for listing tenants
type TenantListQuery struct {
	Keyword  string `form:"keyword" binding:"omitempty"`
	Status   string `form:"status" binding:"omitempty,oneof=trial active suspended inactive"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=schema name status plan created_at updated_at"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// =====================
// Tenant Response DTOs
// =====================

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID                uuid.UUID  `json:"id"`
	Schema            string     `json:"schema"`
	Name              string     `json:"name"`
	Domain            string     `json:"domain,omitempty"`
	AdminEmail        string     `json:"admin_email"`
	AdminName         string     `json:"admin_name,omitempty"`
	FrontendURL       string     `json:"frontend_url,omitempty"`
	PreferredLanguage string     `json:"preferred_language"`
	Status            string     `json:"status"`
	Plan              string     `json:"plan"`
	SuspendedReason   string     `json:"suspended_reason,omitempty"`
	TrialEndsAt       *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TenantListResponse represents a paginated list of tenants
type TenantListResponse struct {
	Tenants    []TenantResponse `json:"tenants"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// TenantStatsResponse represents tenant statistics
type TenantStatsResponse struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Trial     int64 `json:"trial"`
	Inactive  int64 `json:"inactive"`
	Suspended int64 `json:"suspended"`
}
