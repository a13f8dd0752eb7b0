package middleware

import (
	"net/http"
	"strings"

	"github.com/echodesk/backend/internal/infrastructure/auth"
	"github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys populated by the JWT middleware for downstream handlers.
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
	JWTEmailKey    = "jwt_email"
	JWTRoleIDsKey  = "jwt_role_ids"
	JWTPermissions = "jwt_permissions"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// JWTMiddlewareConfig configures the authentication middleware.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// TokenBlacklist is optional; without it, logout and force-logout
	// revocations are not enforced.
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths and SkipPathPrefixes stay reachable without a token.
	SkipPaths        []string
	SkipPathPrefixes []string
	// OnError replaces the default 401 response.
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig skips health checks, the login endpoints, and the
// documentation UI.
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
			"/api/v1/health",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// JWTAuthMiddleware authenticates requests with the default config.
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig validates the bearer token, rejects
// revoked tokens, and stores the claims on the gin context.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tokenString, err := bearerToken(c)
		if err != nil {
			handleAuthError(c, cfg, err, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		if revoked, message := tokenRevoked(c, cfg, claims); revoked {
			handleAuthError(c, cfg, auth.ErrTokenBlacklisted, message)
			return
		}

		storeClaims(c, claims)

		// Propagate identity into the request context so log lines from
		// deeper layers carry user_id and tenant_id.
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithUserID(ctx, log, claims.UserID)
		ctx, _ = logger.WithTenantID(ctx, log, claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("JWT authentication successful",
				zap.String("user_id", claims.UserID),
				zap.String("tenant_id", claims.TenantID),
				zap.String("email", claims.Email),
			)
		}

		c.Next()
	}
}

// bearerToken pulls the raw token out of the Authorization header.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" || !strings.HasPrefix(header, BearerPrefix) {
		return "", auth.ErrInvalidToken
	}
	token := strings.TrimPrefix(header, BearerPrefix)
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

// tokenRevoked consults the blacklist for both per-token logout and
// user-wide force-logout. Blacklist lookup failures are logged but do
// not reject the request: losing Redis must not take authentication
// down with it.
func tokenRevoked(c *gin.Context, cfg JWTMiddlewareConfig, claims *auth.Claims) (bool, string) {
	if cfg.TokenBlacklist == nil {
		return false, ""
	}
	ctx := c.Request.Context()

	if claims.ID != "" {
		blacklisted, err := cfg.TokenBlacklist.IsBlacklisted(ctx, claims.ID)
		switch {
		case err != nil:
			if cfg.Logger != nil {
				cfg.Logger.Error("Failed to check token blacklist",
					zap.String("jti", claims.ID), zap.Error(err))
			}
		case blacklisted:
			return true, "Token has been revoked"
		}
	}

	if claims.UserID != "" {
		invalidated, err := cfg.TokenBlacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
		switch {
		case err != nil:
			if cfg.Logger != nil {
				cfg.Logger.Error("Failed to check user token invalidation",
					zap.String("user_id", claims.UserID), zap.Error(err))
			}
		case invalidated:
			return true, "User session has been invalidated"
		}
	}

	return false, ""
}

func storeClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTTenantIDKey, claims.TenantID)
	c.Set(JWTEmailKey, claims.Email)
	c.Set(JWTRoleIDsKey, claims.RoleIDs)
	c.Set(JWTPermissions, claims.Permissions)
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, msg := "UNAUTHORIZED", "Authentication required"
	switch err {
	case auth.ErrExpiredToken:
		code, msg = "TOKEN_EXPIRED", "Token has expired"
	case auth.ErrInvalidToken:
		code, msg = "INVALID_TOKEN", "Invalid token"
	case auth.ErrInvalidTokenType:
		code, msg = "INVALID_TOKEN_TYPE", "Invalid token type"
	case auth.ErrTokenNotYetValid:
		code, msg = "TOKEN_NOT_VALID", "Token is not yet valid"
	case auth.ErrTokenBlacklisted:
		code, msg = "TOKEN_REVOKED", "Token has been revoked"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": msg},
	})
}

// GetJWTClaims returns the authenticated claims, or nil on an
// unauthenticated request.
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if value, exists := c.Get(JWTClaimsKey); exists {
		if claims, ok := value.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// MustGetJWTClaims is GetJWTClaims for routes that run strictly behind
// the auth middleware; it panics if the claims are absent.
func MustGetJWTClaims(c *gin.Context) *auth.Claims {
	claims := GetJWTClaims(c)
	if claims == nil {
		panic("jwt claims not found in context")
	}
	return claims
}

func contextString(c *gin.Context, key string) string {
	if value, exists := c.Get(key); exists {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}

// GetJWTUserID returns the authenticated user ID, or "".
func GetJWTUserID(c *gin.Context) string { return contextString(c, JWTUserIDKey) }

// GetJWTTenantID returns the authenticated tenant ID, or "".
func GetJWTTenantID(c *gin.Context) string { return contextString(c, JWTTenantIDKey) }

// GetJWTEmail returns the authenticated user's email, or "".
func GetJWTEmail(c *gin.Context) string { return contextString(c, JWTEmailKey) }

// GetJWTRoleIDs returns the authenticated user's role IDs.
func GetJWTRoleIDs(c *gin.Context) []string {
	if value, exists := c.Get(JWTRoleIDsKey); exists {
		if ids, ok := value.([]string); ok {
			return ids
		}
	}
	return nil
}

// GetJWTPermissions returns the authenticated user's permission codes.
func GetJWTPermissions(c *gin.Context) []string {
	if value, exists := c.Get(JWTPermissions); exists {
		if perms, ok := value.([]string); ok {
			return perms
		}
	}
	return nil
}

// OptionalJWTAuthMiddleware extracts claims when a valid token is
// present but lets anonymous requests through. Used where a response
// can be personalized without requiring login.
func OptionalJWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		storeClaims(c, claims)
		c.Next()
	}
}
