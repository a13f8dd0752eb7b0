package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCORSRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/api/v1/tickets", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func corsGet(router *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/api/v1/tickets", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS_DefaultConfig(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/api/v1/tickets", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("cross-origin request gets no CORS headers", func(t *testing.T) {
		w := corsGet(router, "http://rogue.example")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin request passes through", func(t *testing.T) {
		w := corsGet(router, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight answered with 204 even without headers", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/v1/tickets", nil)
		req.Header.Set("Origin", "http://rogue.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSWithConfig(t *testing.T) {
	t.Run("whitelisted origin is echoed back", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins:     []string{"https://console.echodesk.example"},
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
		})

		w := corsGet(router, "https://console.echodesk.example")

		assert.Equal(t, "https://console.echodesk.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("each whitelisted origin is accepted", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins: []string{"https://console.echodesk.example", "https://widget.echodesk.example"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type"},
		})

		w := corsGet(router, "https://console.echodesk.example")
		assert.Equal(t, "https://console.echodesk.example", w.Header().Get("Access-Control-Allow-Origin"))

		w = corsGet(router, "https://widget.echodesk.example")
		assert.Equal(t, "https://widget.echodesk.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin gets no headers", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins: []string{"https://console.echodesk.example"},
		})

		w := corsGet(router, "http://rogue.example")

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty whitelist rejects every cross-origin request", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins: []string{},
			AllowMethods: []string{"GET"},
		})

		w := corsGet(router, "http://anywhere.example")

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true, // must be ignored with a wildcard origin
		})

		w := corsGet(router, "http://anywhere.example")

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Max-Age rendered in seconds", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins: []string{"https://console.echodesk.example"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		})

		w := corsGet(router, "https://console.echodesk.example")

		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("expose headers joined", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins:  []string{"https://console.echodesk.example"},
			AllowMethods:  []string{"GET"},
			AllowHeaders:  []string{"Content-Type"},
			ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining"},
		})

		w := corsGet(router, "https://console.echodesk.example")

		assert.Equal(t, "X-Request-ID, X-RateLimit-Remaining", w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("preflight from whitelisted origin carries full headers", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins: []string{"https://console.echodesk.example"},
			AllowMethods: []string{"GET", "POST", "PUT"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
		})

		req := httptest.NewRequest("OPTIONS", "/api/v1/tickets", nil)
		req.Header.Set("Origin", "https://console.echodesk.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://console.echodesk.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("preflight from unlisted origin still gets 204", func(t *testing.T) {
		router := newCORSRouter(CORSConfig{
			AllowOrigins: []string{"https://console.echodesk.example"},
			AllowMethods: []string{"GET", "POST"},
		})

		req := httptest.NewRequest("OPTIONS", "/api/v1/tickets", nil)
		req.Header.Set("Origin", "http://rogue.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "GET")
	assert.Contains(t, cfg.AllowMethods, "POST")
	assert.Contains(t, cfg.AllowHeaders, "Content-Type")
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.True(t, cfg.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/v1/calls", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generates a fresh ID per request", func(t *testing.T) {
		first := httptest.NewRecorder()
		router.ServeHTTP(first, httptest.NewRequest("GET", "/api/v1/calls", nil))
		second := httptest.NewRecorder()
		router.ServeHTTP(second, httptest.NewRequest("GET", "/api/v1/calls", nil))

		id := first.Header().Get("X-Request-ID")
		assert.NotEmpty(t, id)
		assert.NotEqual(t, id, second.Header().Get("X-Request-ID"))

		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("honors a caller-supplied ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/calls", nil)
		req.Header.Set("X-Request-ID", "gateway-req-9")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "gateway-req-9", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "gateway-req-9", w.Body.String())
	})
}

func newSecureRouter(cfg SecurityConfig) *gin.Engine {
	router := gin.New()
	router.Use(SecureWithConfig(cfg))
	router.GET("/api/v1/tickets", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func secureGet(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/tickets", nil))
	return w
}

func TestSecure_Defaults(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/api/v1/tickets", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := secureGet(router)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))

	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")

	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	policy := w.Header().Get("Permissions-Policy")
	assert.Contains(t, policy, "camera=()")
	assert.Contains(t, policy, "microphone=()")
}

func TestSecureWithConfig(t *testing.T) {
	t.Run("custom CSP directive", func(t *testing.T) {
		w := secureGet(newSecureRouter(SecurityConfig{
			CSPEnabled:   true,
			CSPDirective: "default-src 'none'; script-src 'self'",
		}))

		assert.Equal(t, "default-src 'none'; script-src 'self'", w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("HSTS with all options", func(t *testing.T) {
		w := secureGet(newSecureRouter(SecurityConfig{
			HSTSEnabled:           true,
			HSTSMaxAge:            63072000,
			HSTSIncludeSubdomains: true,
			HSTSPreload:           true,
		}))

		assert.Equal(t, "max-age=63072000; includeSubDomains; preload",
			w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("HSTS without optional flags", func(t *testing.T) {
		w := secureGet(newSecureRouter(SecurityConfig{
			HSTSEnabled: true,
			HSTSMaxAge:  31536000,
		}))

		assert.Equal(t, "max-age=31536000", w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("custom Permissions-Policy directive", func(t *testing.T) {
		w := secureGet(newSecureRouter(SecurityConfig{
			PermissionsPolicyEnabled:   true,
			PermissionsPolicyDirective: "geolocation=(self), microphone=()",
		}))

		assert.Equal(t, "geolocation=(self), microphone=()", w.Header().Get("Permissions-Policy"))
	})

	t.Run("optional headers disabled leaves base headers", func(t *testing.T) {
		w := secureGet(newSecureRouter(SecurityConfig{}))

		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
	})
}

func TestDefaultSecurityConfig(t *testing.T) {
	cfg := DefaultSecurityConfig()

	assert.False(t, cfg.HSTSEnabled)
	assert.Equal(t, 31536000, cfg.HSTSMaxAge)
	assert.True(t, cfg.HSTSIncludeSubdomains)
	assert.False(t, cfg.HSTSPreload)

	assert.True(t, cfg.CSPEnabled)
	assert.Contains(t, cfg.CSPDirective, "default-src 'self'")
	assert.Contains(t, cfg.CSPDirective, "frame-ancestors 'none'")

	assert.True(t, cfg.PermissionsPolicyEnabled)
	assert.Contains(t, cfg.PermissionsPolicyDirective, "camera=()")
}
