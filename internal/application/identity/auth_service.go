package identity

import (
	"context"
	"time"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/domain/shared"
	"github.com/echodesk/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	roleRepo   identity.RoleRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	config     AuthServiceConfig
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		config:     config,
		logger:     logger,
	}
}

// Login authenticates a user within a tenant and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt",
		zap.String("email", input.Email),
		zap.String("tenant_id", input.TenantID.String()))

	user, err := s.userRepo.FindByEmail(ctx, input.TenantID, input.Email)
	if err != nil {
		s.logger.Warn("User not found during login", zap.String("email", input.Email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	// Check if user can login
	if !user.CanLogin() {
		if user.IsLocked() {
			s.logger.Warn("Login attempt for locked account", zap.String("email", input.Email))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later or contact support")
		}
		if user.IsBlocked() {
			s.logger.Warn("Login attempt for blocked account", zap.String("email", input.Email))
			return nil, shared.NewDomainError("ACCOUNT_BLOCKED", "Account has been blocked")
		}
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
	}

	// Verify password
	if !user.VerifyPassword(input.Password) {
		// Record failed attempt
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("email", input.Email),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}

		s.logger.Warn("Invalid password attempt",
			zap.String("email", input.Email),
			zap.Int("failed_attempts", user.FailedAttempts))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	// Load user roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}

	// Collect all permissions from roles
	permissions, err := s.collectUserPermissions(ctx, user.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect user permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user permissions")
	}

	// Generate token pair
	tokenInput := auth.GenerateTokenInput{
		TenantID:      user.TenantID,
		UserID:        user.ID,
		Email:         user.Email,
		RoleIDs:       user.RoleIDs,
		Permissions:   permissions,
		IsTenantAdmin: user.IsTenantAdmin,
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(tokenInput)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	// Record successful login; an invited user becomes active here
	user.RecordLoginSuccess(input.IP)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
		// Don't fail the login - just log the error
	}

	s.logger.Info("User logged in successfully",
		zap.String("email", input.Email),
		zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		User:                  userInfo(user, permissions),
	}, nil
}

// RefreshToken refreshes the access token using a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	s.logger.Info("Token refresh attempt")

	// First, validate the refresh token to extract user info
	refreshClaims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	// Parse user ID from refresh token claims
	userID, err := refreshClaims.GetUserUUID()
	if err != nil {
		s.logger.Error("Invalid user ID in refresh token", zap.Error(err))
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	// Reject refresh tokens issued before a forced logout
	if s.blacklist != nil {
		invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, userID.String(), refreshClaims.GetIssuedAtTime())
		if err != nil {
			s.logger.Error("Failed to check token invalidation", zap.Error(err))
		} else if invalidated {
			s.logger.Warn("Refresh attempt with invalidated token", zap.String("user_id", userID.String()))
			return nil, shared.NewDomainError("TOKEN_INVALID", "Token has been revoked")
		}
	}

	// Find user to verify they still exist and are active
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("User not found during token refresh", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	// Check if user can still access the system
	if !user.CanLogin() {
		s.logger.Warn("Token refresh for inactive user", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	// Load user roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles during refresh", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}

	// Collect updated permissions
	permissions, err := s.collectUserPermissions(ctx, user.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect permissions during refresh", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user permissions")
	}

	// Refresh the token pair
	tokenPair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, permissions)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	s.logger.Info("Token refreshed successfully", zap.String("user_id", userID.String()))

	return &RefreshTokenResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
	}, nil
}

// Logout revokes the current access token by blacklisting its JTI
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	s.logger.Info("User logout",
		zap.String("user_id", input.UserID.String()),
		zap.String("tenant_id", input.TenantID.String()))

	if s.blacklist == nil || input.TokenJTI == "" {
		return nil
	}

	ttl := input.TokenTTL
	if ttl <= 0 {
		ttl = s.jwtService.GetAccessTokenExpiration()
	}

	if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, ttl); err != nil {
		s.logger.Error("Failed to blacklist token", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to revoke token")
	}

	return nil
}

// ForceLogout invalidates every outstanding token for the target user
func (s *AuthService) ForceLogout(ctx context.Context, input ForceLogoutInput) (*ForceLogoutResult, error) {
	s.logger.Info("Force logout",
		zap.String("admin_user_id", input.AdminUserID.String()),
		zap.String("target_user_id", input.TargetUserID.String()),
		zap.String("reason", input.Reason))

	// Verify the target user exists in this tenant
	user, err := s.userRepo.FindByID(ctx, input.TargetUserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	if user.TenantID != input.TenantID {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if s.blacklist != nil {
		// Invalidation window must outlive the longest-lived token
		ttl := s.jwtService.GetRefreshTokenExpiration()
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, input.TargetUserID.String(), ttl); err != nil {
			s.logger.Error("Failed to invalidate user tokens", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to revoke user sessions")
		}
	}

	return &ForceLogoutResult{Message: "All sessions have been revoked"}, nil
}

// GetCurrentUser retrieves the current user's information
func (s *AuthService) GetCurrentUser(ctx context.Context, input GetCurrentUserInput) (*CurrentUserResult, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	// Load roles
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}

	// Collect permissions
	permissions, err := s.collectUserPermissions(ctx, user.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user permissions")
	}

	return &CurrentUserResult{
		User:        userInfo(user, permissions),
		Permissions: permissions,
	}, nil
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user after password change", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update password")
	}

	s.logger.Info("User password changed", zap.String("user_id", input.UserID.String()))

	return nil
}

// collectUserPermissions collects all unique permissions from the user's roles
func (s *AuthService) collectUserPermissions(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	if len(roleIDs) == 0 {
		return []string{}, nil
	}

	// Find all roles
	roles, err := s.roleRepo.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	// Collect unique permissions
	permSet := make(map[string]struct{})
	for _, role := range roles {
		if !role.IsEnabled {
			continue
		}
		// Load permissions for the role
		if err := s.roleRepo.LoadPermissions(ctx, role); err != nil {
			s.logger.Warn("Failed to load permissions for role",
				zap.String("role_id", role.ID.String()),
				zap.Error(err))
			continue
		}
		for _, perm := range role.Permissions {
			permSet[perm.Code] = struct{}{}
		}
	}

	// Convert to slice
	permissions := make([]string, 0, len(permSet))
	for perm := range permSet {
		permissions = append(permissions, perm)
	}

	return permissions, nil
}

// userInfo builds the UserInfo DTO from a user aggregate
func userInfo(user *identity.User, permissions []string) UserInfo {
	return UserInfo{
		ID:            user.ID,
		TenantID:      user.TenantID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		FullName:      user.FullName(),
		Phone:         user.Phone,
		AvatarURL:     user.AvatarURL,
		IsTenantAdmin: user.IsTenantAdmin,
		Permissions:   permissions,
		RoleIDs:       user.RoleIDs,
	}
}

// mapTokenError translates JWT validation errors to domain errors
func mapTokenError(err error) error {
	switch err {
	case auth.ErrExpiredToken:
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case auth.ErrInvalidToken:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	case auth.ErrMaxRefreshExceeded:
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}
