package handler

import (
	"time"

	"github.com/echodesk/backend/internal/application/identity"
	"github.com/google/uuid"
)

// =====================
// Auth Request DTOs
// =====================

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// =====================
// Auth Response DTOs
// =====================

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// AuthUserResponse represents user data in auth responses
type AuthUserResponse struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	FullName      string    `json:"full_name"`
	Phone         string    `json:"phone,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	IsTenantAdmin bool      `json:"is_tenant_admin"`
	Permissions   []string  `json:"permissions"`
	RoleIDs       []string  `json:"role_ids"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token TokenResponse    `json:"token"`
	User  AuthUserResponse `json:"user"`
}

// RefreshTokenResponse represents the response body for successful token refresh
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

// CurrentUserResponse represents the response body for current user info
type CurrentUserResponse struct {
	User        AuthUserResponse `json:"user"`
	Permissions []string         `json:"permissions"`
}

// LogoutResponse represents the response body for logout
type LogoutResponse struct {
	Message string `json:"message"`
}

// ForceLogoutRequest carries the optional audit reason for a forced logout
type ForceLogoutRequest struct {
	Reason string `json:"reason"`
}

func toAuthUserResponse(u identity.UserInfo) AuthUserResponse {
	roleIDs := make([]string, len(u.RoleIDs))
	for i, rid := range u.RoleIDs {
		roleIDs[i] = rid.String()
	}
	return AuthUserResponse{
		ID:            u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName,
		Phone:         u.Phone,
		AvatarURL:     u.AvatarURL,
		IsTenantAdmin: u.IsTenantAdmin,
		Permissions:   u.Permissions,
		RoleIDs:       roleIDs,
	}
}
