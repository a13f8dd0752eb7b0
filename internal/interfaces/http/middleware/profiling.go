// Package middleware provides HTTP middleware for the application.
package middleware

import (
	"context"
	"strings"

	"github.com/echodesk/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig controls which requests get Pyroscope labels.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths and SkipPathPrefixes exclude noise like health checks
	// and the swagger UI from labeled profiles.
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig labels everything except health, metrics, and
// documentation endpoints.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// Profiling attaches controller, route, method, and tenant labels to the
// request's pprof context, so profiles can be sliced per endpoint and
// tenant in Pyroscope. Mount it after the JWT and tenant middleware so
// the tenant label is populated.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig is Profiling with custom configuration.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

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

		// The route pattern, not the raw path, keeps cardinality bounded.
		route := c.FullPath()
		labels := telemetry.HTTPRequestLabels(
			controllerFromRoute(route),
			route,
			c.Request.Method,
			profilingTenantID(c),
		)

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// controllerFromRoute picks the resource segment out of a route pattern:
// "/api/v1/calls/:id" yields "calls".
func controllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}

// profilingTenantID reads the tenant from the JWT claims first and the
// tenant middleware second, matching the trust order used elsewhere.
func profilingTenantID(c *gin.Context) string {
	if tenantID, exists := c.Get(JWTTenantIDKey); exists {
		if id, ok := tenantID.(string); ok && id != "" {
			return id
		}
	}
	if tenantID, exists := c.Get(TenantIDKey); exists {
		if id, ok := tenantID.(string); ok && id != "" {
			return id
		}
	}
	return ""
}
