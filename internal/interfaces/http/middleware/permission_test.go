package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/echodesk/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// withClaims seeds authenticated claims the way the JWT middleware would,
// so guards can be exercised without minting real tokens.
func withClaims(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(JWTClaimsKey, &auth.Claims{
			UserID:      "7f8c1c1e-2b43-4f0a-9d0e-aa1b2c3d4e5f",
			TenantID:    "acme-telecom",
			Email:       "agent@echodesk.ge",
			Permissions: permissions,
		})
		c.Next()
	}
}

func newGuardRouter(guard gin.HandlerFunc, seed gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	if seed != nil {
		router.Use(seed)
	}
	handle := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	router.GET("/guarded", guard, handle)
	router.POST("/guarded", guard, handle)
	router.PUT("/guarded", guard, handle)
	router.PATCH("/guarded", guard, handle)
	router.DELETE("/guarded", guard, handle)
	return router
}

func guardRequest(router *gin.Engine, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/guarded", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequirePermission(t *testing.T) {
	t.Run("caller holding the code passes", func(t *testing.T) {
		router := newGuardRouter(RequirePermission("call:read"), withClaims("call:read", "call:answer"))
		w := guardRequest(router, http.MethodGet)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("caller without the code is rejected", func(t *testing.T) {
		router := newGuardRouter(RequirePermission("call:delete"), withClaims("call:read"))
		w := guardRequest(router, http.MethodGet)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		router := newGuardRouter(RequirePermission("call:read"), nil)
		w := guardRequest(router, http.MethodGet)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequirePermission_DeniedResponseShape(t *testing.T) {
	router := newGuardRouter(RequirePermission("tenant:delete"), withClaims("call:read"))
	w := guardRequest(router, http.MethodGet)

	require.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ERR_FORBIDDEN", errObj["code"])
}

func TestRequireAnyPermission(t *testing.T) {
	tests := []struct {
		name     string
		held     []string
		wantCode int
	}{
		{"first code held", []string{"recording:delete"}, http.StatusOK},
		{"second code held", []string{"call:update"}, http.StatusOK},
		{"both codes held", []string{"recording:delete", "call:update"}, http.StatusOK},
		{"neither code held", []string{"call:read"}, http.StatusForbidden},
		{"no codes at all", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := RequireAnyPermission("recording:delete", "call:update")
			router := newGuardRouter(guard, withClaims(tt.held...))
			w := guardRequest(router, http.MethodDelete)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRequireAllPermissions(t *testing.T) {
	tests := []struct {
		name     string
		held     []string
		wantCode int
	}{
		{"all codes held", []string{"user:update", "role:read"}, http.StatusOK},
		{"one code missing", []string{"user:update"}, http.StatusForbidden},
		{"unrelated codes only", []string{"call:read", "call:answer"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := RequireAllPermissions("user:update", "role:read")
			router := newGuardRouter(guard, withClaims(tt.held...))
			w := guardRequest(router, http.MethodPut)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRequireResource(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		held     []string
		wantCode int
	}{
		{"GET needs read", http.MethodGet, []string{"call:read"}, http.StatusOK},
		{"POST needs create", http.MethodPost, []string{"call:create"}, http.StatusOK},
		{"PUT needs update", http.MethodPut, []string{"call:update"}, http.StatusOK},
		{"PATCH needs update", http.MethodPatch, []string{"call:update"}, http.StatusOK},
		{"DELETE needs delete", http.MethodDelete, []string{"call:delete"}, http.StatusOK},
		{"read code does not grant delete", http.MethodDelete, []string{"call:read"}, http.StatusForbidden},
		{"create code does not grant update", http.MethodPut, []string{"call:create"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newGuardRouter(RequireResource("call"), withClaims(tt.held...))
			w := guardRequest(router, tt.method)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestActionForMethod(t *testing.T) {
	assert.Equal(t, "read", actionForMethod(http.MethodGet))
	assert.Equal(t, "create", actionForMethod(http.MethodPost))
	assert.Equal(t, "update", actionForMethod(http.MethodPut))
	assert.Equal(t, "update", actionForMethod(http.MethodPatch))
	assert.Equal(t, "delete", actionForMethod(http.MethodDelete))
	assert.Equal(t, "read", actionForMethod("options"))
}

func TestPermissionConfig_OnDenied(t *testing.T) {
	var captured []string
	cfg := PermissionConfig{
		Logger: zaptest.NewLogger(t),
		OnDenied: func(c *gin.Context, required []string) {
			captured = required
			c.AbortWithStatus(http.StatusTeapot)
		},
	}

	guard := RequireAnyPermissionWithConfig(cfg, "tenant:update", "tenant:delete")
	router := newGuardRouter(guard, withClaims("call:read"))
	w := guardRequest(router, http.MethodPost)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, []string{"tenant:update", "tenant:delete"}, captured)
}

func TestRequireResourceWithConfig_Logging(t *testing.T) {
	cfg := PermissionConfig{Logger: zaptest.NewLogger(t)}

	router := newGuardRouter(RequireResourceWithConfig("package", cfg), withClaims("package:create"))
	assert.Equal(t, http.StatusOK, guardRequest(router, http.MethodPost).Code)
	assert.Equal(t, http.StatusForbidden, guardRequest(router, http.MethodDelete).Code)
}

func TestRequirePermissionWithConfig(t *testing.T) {
	cfg := PermissionConfig{Logger: zaptest.NewLogger(t)}
	router := newGuardRouter(RequirePermissionWithConfig("role:update", cfg), withClaims("role:update"))
	assert.Equal(t, http.StatusOK, guardRequest(router, http.MethodPut).Code)
}
