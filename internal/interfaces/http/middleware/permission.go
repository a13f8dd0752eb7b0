package middleware

import (
	"net/http"
	"strings"

	"github.com/echodesk/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig tunes the permission guards.
type PermissionConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied overrides the default 403 response (optional)
	OnDenied func(c *gin.Context, required []string)
}

// RequirePermission guards a route behind a single resource:action code.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permission)
}

// RequirePermissionWithConfig guards a route behind a single code with custom config.
func RequirePermissionWithConfig(permission string, cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, permission)
}

// RequireAnyPermission passes when the caller holds at least one of the codes.
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permissions...)
}

// RequireAnyPermissionWithConfig is RequireAnyPermission with custom config.
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return permissionGuard(cfg, permissions, func(claims *auth.Claims) bool {
		return claims.HasAnyPermission(permissions...)
	})
}

// RequireAllPermissions passes only when the caller holds every listed code.
func RequireAllPermissions(permissions ...string) gin.HandlerFunc {
	return RequireAllPermissionsWithConfig(PermissionConfig{}, permissions...)
}

// RequireAllPermissionsWithConfig is RequireAllPermissions with custom config.
func RequireAllPermissionsWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return permissionGuard(cfg, permissions, func(claims *auth.Claims) bool {
		return claims.HasAllPermissions(permissions...)
	})
}

// RequireResource derives the required code from the HTTP method, so one
// guard can cover a whole CRUD group: GET needs resource:read, POST
// resource:create, PUT and PATCH resource:update, DELETE resource:delete.
func RequireResource(resource string) gin.HandlerFunc {
	return RequireResourceWithConfig(resource, PermissionConfig{})
}

// RequireResourceWithConfig is RequireResource with custom config.
func RequireResourceWithConfig(resource string, cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := resource + ":" + actionForMethod(c.Request.Method)
		permissionGuard(cfg, []string{code}, func(claims *auth.Claims) bool {
			return claims.HasPermission(code)
		})(c)
	}
}

func actionForMethod(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// permissionGuard is the shared claims lookup and deny path behind every
// permission middleware variant.
func permissionGuard(cfg PermissionConfig, required []string, allowed func(*auth.Claims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil || !allowed(claims) {
			denyPermission(c, cfg, required, claims)
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("Permission check passed",
				zap.String("user_id", claims.UserID),
				zap.Strings("required", required),
			)
		}

		c.Next()
	}
}

func denyPermission(c *gin.Context, cfg PermissionConfig, required []string, claims *auth.Claims) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, required)
		return
	}

	if cfg.Logger != nil {
		userID := ""
		held := []string{}
		if claims != nil {
			userID = claims.UserID
			held = claims.Permissions
		}
		cfg.Logger.Warn("Permission denied",
			zap.String("user_id", userID),
			zap.Strings("required_permissions", required),
			zap.Strings("user_permissions", held),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: insufficient permissions",
		},
	})
}
