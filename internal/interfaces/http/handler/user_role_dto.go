package handler

import (
	"time"

	"github.com/google/uuid"
)

// =====================
// User Request DTOs
// =====================

// CreateUserRequest represents the request body for creating a user
// @Name HandlerCreateUserRequest
type CreateUserRequest struct {
	Email     string   `json:"email" binding:"required,email,max=200"`
	Password  string   `json:"password" binding:"omitempty,min=8,max=128"`
	FirstName string   `json:"first_name" binding:"omitempty,max=100"`
	LastName  string   `json:"last_name" binding:"omitempty,max=100"`
	Phone     string   `json:"phone" binding:"omitempty,max=50"`
	Invited   bool     `json:"invited"`
	RoleIDs   []string `json:"role_ids" binding:"omitempty"`
}

// UpdateUserRequest represents the request body for updating a user
// @Name HandlerUpdateUserRequest
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=50"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,max=500"`
}

// ResetPasswordRequest represents the request body for resetting a user's password
// @Name HandlerResetPasswordRequest
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// AssignRolesRequest represents the request body for assigning roles to a user
// @Name HandlerAssignRolesRequest
type AssignRolesRequest struct {
	RoleIDs []string `json:"role_ids" binding:"required"`
}

// LockUserRequest represents the request body for locking a user
// @Name HandlerLockUserRequest
type LockUserRequest struct {
	DurationMinutes int `json:"duration_minutes" binding:"omitempty,min=1"`
}

// UserListQuery represents query parameters for listing users
// @Name HandlerUserListQuery
type UserListQuery struct {
	Keyword  string `form:"keyword" binding:"omitempty"`
	Status   string `form:"status" binding:"omitempty,oneof=invited active blocked locked"`
	RoleID   string `form:"role_id" binding:"omitempty,uuid"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=email first_name last_name created_at updated_at last_login_at"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// =====================
// User Response DTOs
// =====================

// UserResponse represents a user in API responses
// @Name HandlerUserResponse
type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	FullName      string     `json:"full_name"`
	Phone         string     `json:"phone,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Status        string     `json:"status"`
	IsTenantAdmin bool       `json:"is_tenant_admin"`
	RoleIDs       []string   `json:"role_ids"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UserListResponse represents a paginated list of users
// @Name HandlerUserListQuery
type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// =====================
// Role Request DTOs
// =====================

// CreateRoleRequest represents the request body for creating a role
// @Name HandlerCreateRoleRequest
type CreateRoleRequest struct {
	Code        string             `json:"code" binding:"required,min=2,max=50"`
	Name        string             `json:"name" binding:"required,min=1,max=100"`
	Description string             `json:"description" binding:"omitempty"`
	Permissions []string           `json:"permissions" binding:"omitempty"`
	DataScopes  []DataScopeRequest `json:"data_scopes" binding:"omitempty,dive"`
	SortOrder   int                `json:"sort_order" binding:"omitempty"`
}

// DataScopeRequest represents one record-visibility rule in a request body
// @Name HandlerDataScopeRequest
type DataScopeRequest struct {
	Resource string   `json:"resource" binding:"required,max=50"`
	Scope    string   `json:"scope" binding:"required,oneof=all self custom"`
	Field    string   `json:"field" binding:"omitempty,max=100"`
	Values   []string `json:"values" binding:"omitempty"`
}

// SetDataScopesRequest represents the request body for replacing a role's data scopes
// @Name HandlerSetDataScopesRequest
type SetDataScopesRequest struct {
	DataScopes []DataScopeRequest `json:"data_scopes" binding:"required,dive"`
}

// UpdateRoleRequest represents the request body for updating a role
// @Name HandlerUpdateRoleRequest
type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty"`
	SortOrder   *int    `json:"sort_order" binding:"omitempty"`
}

// SetPermissionsRequest represents the request body for setting role permissions
// @Name HandlerUpdateRoleRequest
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

// RoleListQuery represents query parameters for listing roles
// @Name HandlerUpdateRoleRequest
type RoleListQuery struct {
	Keyword      string `form:"keyword" binding:"omitempty"`
	IsEnabled    *bool  `form:"is_enabled" binding:"omitempty"`
	IsSystemRole *bool  `form:"is_system_role" binding:"omitempty"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// =====================
// Role Response DTOs
// =====================

// RoleResponse represents a role in API responses
// @Name HandlerRoleResponse
type RoleResponse struct {
	ID           uuid.UUID           `json:"id"`
	TenantID     uuid.UUID           `json:"tenant_id"`
	Code         string              `json:"code"`
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	IsSystemRole bool                `json:"is_system_role"`
	IsEnabled    bool                `json:"is_enabled"`
	SortOrder    int                 `json:"sort_order"`
	Permissions  []string            `json:"permissions"`
	DataScopes   []DataScopeResponse `json:"data_scopes"`
	UserCount    int64               `json:"user_count,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// DataScopeResponse represents one record-visibility rule in API responses
// @Name HandlerDataScopeResponse
type DataScopeResponse struct {
	Resource string   `json:"resource"`
	Scope    string   `json:"scope"`
	Field    string   `json:"field,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// RoleListResponse represents a paginated list of roles
// @Name HandlerRoleResponse
type RoleListResponse struct {
	Roles      []RoleResponse `json:"roles"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// PermissionResponse represents a permission in API responses
// @Name HandlerRoleResponse
type PermissionResponse struct {
	Code        string `json:"code"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// PermissionListResponse represents a list of permissions
// @Name HandlerPermissionListResponse
type PermissionListResponse struct {
	Permissions []string `json:"permissions"`
}
