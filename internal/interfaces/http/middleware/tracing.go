package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Header-sourced span attributes are capped and validated: both values
// end up in the trace backend, so oversized or crafted headers must not
// get through.
const (
	MaxRequestIDLength = 128
	MaxTenantIDLength  = 64
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig configures the otelgin tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "echodesk-backend",
		Enabled:     true,
	}
}

// Tracing opens a span per request under the default service name.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and enriches its spans with
// request_id, tenant_id, and user_id. Span names follow otelgin's
// "METHOD route_pattern" convention.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	base := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		// otelgin runs the rest of the chain inside its span; by the
		// time it returns, JWT middleware has stored the identity keys.
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if tenantID := getTenantID(c); tenantID != "" {
		span.SetAttributes(attribute.String("tenant_id", tenantID))
	}
	if userID := getUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user_id", userID))
	}
}

// getRequestID prefers the ID minted by the RequestID middleware and
// falls back to a truncated X-Request-ID header.
func getRequestID(c *gin.Context) string {
	if id := contextString(c, "request_id"); id != "" {
		return id
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// getTenantID prefers the JWT claim; the X-Tenant-ID header is accepted
// only when it parses as a UUID, since unauthenticated callers control
// it.
func getTenantID(c *gin.Context) string {
	if id := contextString(c, JWTTenantIDKey); id != "" {
		return id
	}
	if header := c.GetHeader("X-Tenant-ID"); header != "" && isValidTenantID(header) {
		return header
	}
	return ""
}

func isValidTenantID(tenantID string) bool {
	return len(tenantID) <= MaxTenantIDLength && uuidRegex.MatchString(tenantID)
}

func getUserID(c *gin.Context) string {
	return contextString(c, JWTUserIDKey)
}

// SpanErrorMarker sets error status on spans for 4xx/5xx responses.
// Mount it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		var message string
		switch {
		case statusCode >= http.StatusInternalServerError:
			message = "Internal Server Error"
		case statusCode == http.StatusUnauthorized:
			message = "Unauthorized"
		case statusCode == http.StatusForbidden:
			message = "Forbidden"
		case statusCode == http.StatusNotFound:
			message = "Not Found"
		default:
			message = "Client Error"
		}

		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}

// TracingAttributeInjector re-applies the identity attributes for
// chains where Tracing runs before authentication. Mount it after both.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}
