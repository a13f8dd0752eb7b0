package middleware

import (
	"net/http"
	"strings"

	"github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gin context keys set by the tenant middleware.
const (
	TenantIDKey     = "tenant_id"
	TenantCodeKey   = "tenant_code"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantInfo is what a validator reports back for a resolved tenant.
type TenantInfo struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// TenantValidator checks that a tenant exists and may serve traffic.
type TenantValidator interface {
	ValidateTenant(tenantID string) (*TenantInfo, error)
}

// TenantMiddlewareConfig controls how the tenant is resolved per request.
type TenantMiddlewareConfig struct {
	// HeaderEnabled allows the X-Tenant-ID header as a source.
	HeaderEnabled bool
	// JWTEnabled reads the tenant from JWT claims set by the auth middleware.
	JWTEnabled bool
	// SubdomainEnabled derives the tenant from the request host.
	SubdomainEnabled bool
	// BaseDomain anchors subdomain extraction ("acme.echodesk.ge" -> "acme").
	BaseDomain string
	// SkipPaths bypass tenant resolution entirely (health checks, metrics).
	SkipPaths []string
	// Required rejects requests that resolve no tenant.
	Required bool
	// Validator, when set, is consulted for every resolved tenant.
	Validator TenantValidator
	Logger    *zap.Logger
}

func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		HeaderEnabled: true,
		JWTEnabled:    true,
		SkipPaths:     []string{"/health", "/healthz", "/ready", "/metrics", "/api/v1/health"},
		Required:      true,
	}
}

// TenantMiddleware resolves the tenant with the default configuration.
// Sources are tried in order: JWT claims, X-Tenant-ID header, subdomain.
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		tenantID, source := resolveTenantID(c, cfg)

		if tenantID != "" {
			if _, err := uuid.Parse(tenantID); err != nil {
				respondUnauthorized(c, "Invalid tenant ID format")
				return
			}
		}
		if tenantID == "" {
			if cfg.Required {
				respondUnauthorized(c, "Tenant identification required")
				return
			}
			c.Next()
			return
		}

		var info *TenantInfo
		if cfg.Validator != nil {
			var err error
			if info, err = cfg.Validator.ValidateTenant(tenantID); err != nil {
				log := cfg.Logger
				if log == nil {
					log = logger.FromContext(c.Request.Context())
				}
				log.Warn("Tenant validation failed",
					zap.String("tenant_id", tenantID),
					zap.Error(err))
				respondUnauthorized(c, "Invalid or inactive tenant")
				return
			}
		}

		c.Set(TenantIDKey, tenantID)
		if info != nil {
			c.Set(TenantCodeKey, info.Code)
		}

		// Push the tenant into the request context so repositories and the
		// access log can pick it up.
		ctx := c.Request.Context()
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID)
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("Tenant identified",
				zap.String("tenant_id", tenantID),
				zap.String("source", source))
		}

		c.Next()
	}
}

// resolveTenantID tries each enabled source in priority order and reports
// which one matched.
func resolveTenantID(c *gin.Context, cfg TenantMiddlewareConfig) (string, string) {
	if cfg.JWTEnabled {
		if v, exists := c.Get("jwt_tenant_id"); exists {
			if id, ok := v.(string); ok && id != "" {
				return id, "jwt"
			}
		}
	}
	if cfg.HeaderEnabled {
		if id := c.GetHeader(TenantHeaderKey); id != "" {
			return id, "header"
		}
	}
	if cfg.SubdomainEnabled && cfg.BaseDomain != "" {
		if id := tenantFromSubdomain(c.Request.Host, cfg.BaseDomain); id != "" {
			return id, "subdomain"
		}
	}
	return "", ""
}

// tenantFromSubdomain extracts the leftmost label of the subdomain, so
// "acme.echodesk.ge" against base domain "echodesk.ge" yields "acme".
func tenantFromSubdomain(host, baseDomain string) string {
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	if !strings.HasSuffix(host, baseDomain) {
		return ""
	}

	subdomain := strings.TrimSuffix(host, "."+baseDomain)
	if subdomain == host || subdomain == "" || subdomain == "www" {
		return ""
	}
	return strings.Split(subdomain, ".")[0]
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetTenantID returns the tenant ID resolved for this request, or "".
func GetTenantID(c *gin.Context) string {
	if v, exists := c.Get(TenantIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetTenantUUID returns the resolved tenant ID parsed as a UUID. A request
// without a tenant yields uuid.Nil and no error.
func GetTenantUUID(c *gin.Context) (uuid.UUID, error) {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(tenantID)
}

// GetTenantCode returns the tenant code when a validator supplied one.
func GetTenantCode(c *gin.Context) string {
	if v, exists := c.Get(TenantCodeKey); exists {
		if code, ok := v.(string); ok {
			return code
		}
	}
	return ""
}
