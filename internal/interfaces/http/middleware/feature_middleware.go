package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeatureGate resolves whether a tenant's subscription package enables
// a feature. The billing quota service implements it.
type FeatureGate interface {
	HasFeature(ctx context.Context, tenantID uuid.UUID, key billing.FeatureKey) (bool, error)
}

// FeatureGateConfig holds configuration for the feature gate middleware
type FeatureGateConfig struct {
	// Gate is required
	Gate FeatureGate
	// Timeout bounds the gate lookup (default: 3 seconds)
	Timeout time.Duration
	// Logger for middleware logging
	Logger *zap.Logger
}

// RequireFeature blocks requests for tenants whose package does not
// include the feature. It must run after JWT or tenant middleware so
// the tenant is already resolved.
func RequireFeature(key billing.FeatureKey, cfg FeatureGateConfig) gin.HandlerFunc {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return func(c *gin.Context) {
		tenantID, err := GetTenantUUID(c)
		if err != nil || tenantID == uuid.Nil {
			if raw := GetJWTTenantID(c); raw != "" {
				tenantID, err = uuid.Parse(raw)
			}
			if err != nil || tenantID == uuid.Nil {
				abortFeatureCheck(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", "Tenant could not be resolved")
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		enabled, err := cfg.Gate.HasFeature(ctx, tenantID, key)
		cancel()
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Error("Feature gate lookup failed",
					zap.String("tenant_id", tenantID.String()),
					zap.String("feature", string(key)),
					zap.Error(err),
				)
			}
			abortFeatureCheck(c, http.StatusServiceUnavailable, "ERR_SERVICE_UNAVAILABLE", "Feature check unavailable")
			return
		}

		if !enabled {
			if cfg.Logger != nil {
				cfg.Logger.Debug("Feature gate denied request",
					zap.String("tenant_id", tenantID.String()),
					zap.String("feature", string(key)),
					zap.String("path", c.Request.URL.Path),
				)
			}
			abortFeatureCheck(c, http.StatusForbidden, "FEATURE_NOT_AVAILABLE", "Feature not included in the current package: "+string(key))
			return
		}

		c.Next()
	}
}

func abortFeatureCheck(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
