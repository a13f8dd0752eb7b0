package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newProfilingRouter(cfg ProfilingConfig, path string) (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	called := false
	r.Use(ProfilingWithConfig(cfg))
	r.GET(path, func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})
	return r, &called
}

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.ElementsMatch(t, []string{"/health", "/healthz", "/ready", "/metrics"}, cfg.SkipPaths)
	assert.ElementsMatch(t, []string{"/swagger", "/api-docs"}, cfg.SkipPathPrefixes)
}

func TestProfiling_Disabled(t *testing.T) {
	r, called := newProfilingRouter(ProfilingConfig{Enabled: false}, "/api/v1/calls")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/calls", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *called)
}

func TestProfiling_SkipPaths(t *testing.T) {
	// Skipped or not, the request must reach the handler untouched.
	paths := []string{
		"/health",
		"/healthz",
		"/metrics",
		"/swagger/index.html",
		"/api-docs/v1",
		"/health/check",
		"/api/v1/calls",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			r, called := newProfilingRouter(DefaultProfilingConfig(), path)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, *called)
		})
	}
}

func TestProfiling_PreservesRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	r.Use(Profiling())
	r.GET("/api/v1/calls/:id", func(c *gin.Context) {
		value, exists := c.Get("request_id")
		assert.True(t, exists)
		assert.Equal(t, "req-42", value)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/calls/123", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestControllerFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/calls", "calls"},
		{"/api/v1/calls/:id", "calls"},
		{"/api/v1/calls/:id/recordings", "calls"},
		{"/api/v2/tickets", "tickets"},
		{"/clients", "clients"},
		{"/v1/clients", "clients"},
		{"/api/v1/:id", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, controllerFromRoute(tt.route), "route %q", tt.route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	tests := []struct {
		segment string
		want    bool
	}{
		{"v1", true},
		{"v2", true},
		{"v10", true},
		{"V3", true},
		{"v", false},
		{"version", false},
		{"calls", false},
		{"v1a", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isVersionSegment(tt.segment), "segment %q", tt.segment)
	}
}

func TestProfilingTenantID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctxWith := func(seed func(*gin.Context)) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/calls", nil)
		seed(c)
		return c
	}

	t.Run("jwt claims win over tenant header", func(t *testing.T) {
		c := ctxWith(func(c *gin.Context) {
			c.Set(JWTTenantIDKey, "acme-telecom")
			c.Set(TenantIDKey, "header-tenant")
		})
		assert.Equal(t, "acme-telecom", profilingTenantID(c))
	})

	t.Run("falls back to tenant middleware", func(t *testing.T) {
		c := ctxWith(func(c *gin.Context) {
			c.Set(TenantIDKey, "geocell")
		})
		assert.Equal(t, "geocell", profilingTenantID(c))
	})

	t.Run("non-string value is ignored", func(t *testing.T) {
		c := ctxWith(func(c *gin.Context) {
			c.Set(JWTTenantIDKey, 12345)
		})
		assert.Equal(t, "", profilingTenantID(c))
	})

	t.Run("unauthenticated request has no tenant", func(t *testing.T) {
		c := ctxWith(func(*gin.Context) {})
		assert.Equal(t, "", profilingTenantID(c))
	})
}
