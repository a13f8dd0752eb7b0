package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/echodesk/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens. Each kind
// is signed with its own secret and only valid for its own purpose.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingTenantID    = errors.New("missing tenant_id in claims")
	ErrMissingUserID      = errors.New("missing user_id in claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenBlacklisted   = errors.New("token has been revoked")
)

// Claims is the JWT payload. Access tokens carry the full identity
// (roles, permissions, admin flag); refresh tokens only carry enough to
// mint the next pair.
type Claims struct {
	jwt.RegisteredClaims
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	RoleIDs       []string  `json:"role_ids,omitempty"`
	Permissions   []string  `json:"permissions,omitempty"`
	IsTenantAdmin bool      `json:"is_tenant_admin,omitempty"`
	TokenType     TokenType `json:"token_type"`
	RefreshCount  int       `json:"refresh_count,omitempty"`
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"` // Bearer
}

// JWTService mints and validates HS256 token pairs.
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
	maxRefreshCount   int
}

// NewJWTService builds the service from configuration. Deployments that
// do not set a separate refresh secret sign both kinds with one key.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := []byte(cfg.RefreshSecret)
	if cfg.RefreshSecret == "" {
		refreshSecret = []byte(cfg.Secret)
	}

	return &JWTService{
		accessSecret:      []byte(cfg.Secret),
		refreshSecret:     refreshSecret,
		accessExpiration:  cfg.AccessTokenExpiration,
		refreshExpiration: cfg.RefreshTokenExpiration,
		issuer:            cfg.Issuer,
		maxRefreshCount:   cfg.MaxRefreshCount,
	}
}

// GenerateTokenInput carries the identity baked into a new token pair.
type GenerateTokenInput struct {
	TenantID      uuid.UUID
	UserID        uuid.UUID
	Email         string
	RoleIDs       []uuid.UUID
	Permissions   []string
	IsTenantAdmin bool
}

// GenerateTokenPair mints a fresh access and refresh token pair.
func (s *JWTService) GenerateTokenPair(input GenerateTokenInput) (*TokenPair, error) {
	now := time.Now()

	roleIDs := make([]string, len(input.RoleIDs))
	for i, rid := range input.RoleIDs {
		roleIDs[i] = rid.String()
	}

	access := s.newAccessClaims(now, input.TenantID.String(), input.UserID.String(), input.Email,
		roleIDs, input.Permissions, input.IsTenantAdmin)
	refresh := s.newRefreshClaims(now, input.TenantID.String(), input.UserID.String(), 0)

	return s.signPair(now, access, refresh)
}

// RefreshTokenPair rotates a token pair. Permissions are passed in by
// the caller rather than copied from the old token, so a role change
// takes effect on the next refresh. The refresh count carries over and
// caps how long a session can live without a real login.
func (s *JWTService) RefreshTokenPair(refreshToken string, permissions []string) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	if claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	if _, err := uuid.Parse(claims.TenantID); err != nil {
		return nil, ErrInvalidClaims
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidClaims
	}

	now := time.Now()
	access := s.newAccessClaims(now, claims.TenantID, claims.UserID, claims.Email,
		claims.RoleIDs, permissions, claims.IsTenantAdmin)
	refresh := s.newRefreshClaims(now, claims.TenantID, claims.UserID, claims.RefreshCount+1)

	return s.signPair(now, access, refresh)
}

func (s *JWTService) registeredClaims(now time.Time, subject string, lifetime time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    s.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.issuer},
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func (s *JWTService) newAccessClaims(now time.Time, tenantID, userID, email string,
	roleIDs, permissions []string, isTenantAdmin bool) *Claims {
	return &Claims{
		RegisteredClaims: s.registeredClaims(now, userID, s.accessExpiration),
		TenantID:         tenantID,
		UserID:           userID,
		Email:            email,
		RoleIDs:          roleIDs,
		Permissions:      permissions,
		IsTenantAdmin:    isTenantAdmin,
		TokenType:        TokenTypeAccess,
	}
}

func (s *JWTService) newRefreshClaims(now time.Time, tenantID, userID string, refreshCount int) *Claims {
	return &Claims{
		RegisteredClaims: s.registeredClaims(now, userID, s.refreshExpiration),
		TenantID:         tenantID,
		UserID:           userID,
		TokenType:        TokenTypeRefresh,
		RefreshCount:     refreshCount,
	}
}

func (s *JWTService) signPair(now time.Time, access, refresh *Claims) (*TokenPair, error) {
	accessToken, err := s.signToken(access, s.accessSecret)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.signToken(refresh, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  now.Add(s.accessExpiration),
		RefreshTokenExpiresAt: now.Add(s.refreshExpiration),
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) signToken(claims *Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccessToken parses and verifies an access token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken parses and verifies a refresh token.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, s.refreshSecret, TokenTypeRefresh)
}

func (s *JWTService) validateToken(tokenString string, secret []byte, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Pinning the algorithm family blocks alg-swap forgeries.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	// A refresh token must never pass where an access token is expected.
	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}

	return claims, nil
}

func (s *JWTService) GetAccessTokenExpiration() time.Duration  { return s.accessExpiration }
func (s *JWTService) GetRefreshTokenExpiration() time.Duration { return s.refreshExpiration }

// GetTenantUUID parses the tenant ID claim.
func (c *Claims) GetTenantUUID() (uuid.UUID, error) { return uuid.Parse(c.TenantID) }

// GetUserUUID parses the user ID claim.
func (c *Claims) GetUserUUID() (uuid.UUID, error) { return uuid.Parse(c.UserID) }

// GetRoleUUIDs parses the role ID claims.
func (c *Claims) GetRoleUUIDs() ([]uuid.UUID, error) {
	roleIDs := make([]uuid.UUID, 0, len(c.RoleIDs))
	for _, rid := range c.RoleIDs {
		id, err := uuid.Parse(rid)
		if err != nil {
			return nil, err
		}
		roleIDs = append(roleIDs, id)
	}
	return roleIDs, nil
}

// HasPermission reports whether the token carries the permission code.
func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// HasAnyPermission reports whether at least one of the codes is present.
func (c *Claims) HasAnyPermission(permissions ...string) bool {
	return slices.ContainsFunc(permissions, c.HasPermission)
}

// HasAllPermissions reports whether every code is present.
func (c *Claims) HasAllPermissions(permissions ...string) bool {
	for _, required := range permissions {
		if !c.HasPermission(required) {
			return false
		}
	}
	return true
}

// GetIssuedAtTime returns the issued-at claim, or the zero time.
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// GetExpiresAtTime returns the expiry claim, or the zero time.
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// GetRemainingTTL returns how long the token has left, clamped at zero.
// Logout uses it as the blacklist entry TTL.
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}
