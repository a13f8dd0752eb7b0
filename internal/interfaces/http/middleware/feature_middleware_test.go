package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/echodesk/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeFeatureGate struct {
	enabled bool
	err     error
	calls   int
}

func (f *fakeFeatureGate) HasFeature(_ context.Context, _ uuid.UUID, _ billing.FeatureKey) (bool, error) {
	f.calls++
	return f.enabled, f.err
}

func featureGateRouter(gate FeatureGate, tenantID string) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if tenantID != "" {
			c.Set(TenantIDKey, tenantID)
		}
		c.Next()
	})
	router.Use(RequireFeature(billing.FeatureCallRecording, FeatureGateConfig{Gate: gate}))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestRequireFeature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tenantID := uuid.New().String()

	t.Run("passes when the gate is on", func(t *testing.T) {
		gate := &fakeFeatureGate{enabled: true}
		router := featureGateRouter(gate, tenantID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, gate.calls)
	})

	t.Run("rejects when the gate is off", func(t *testing.T) {
		gate := &fakeFeatureGate{enabled: false}
		router := featureGateRouter(gate, tenantID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "FEATURE_NOT_AVAILABLE")
	})

	t.Run("rejects when no tenant is resolved", func(t *testing.T) {
		gate := &fakeFeatureGate{enabled: true}
		router := featureGateRouter(gate, "")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 0, gate.calls)
	})

	t.Run("returns 503 when the lookup fails", func(t *testing.T) {
		gate := &fakeFeatureGate{err: errors.New("redis down")}
		router := featureGateRouter(gate, tenantID)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
