package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithProfilingLabels(t *testing.T) {
	t.Run("runs fn with labels attached", func(t *testing.T) {
		var got context.Context
		WithProfilingLabels(context.Background(), map[string]string{
			ProfilingLabelController: "CallHandler",
			ProfilingLabelOperation:  "StartCall",
		}, func(c context.Context) {
			got = c
		})
		require.NotNil(t, got)
	})

	t.Run("nil and empty maps still run fn", func(t *testing.T) {
		for _, labels := range []map[string]string{nil, {}} {
			called := false
			WithProfilingLabels(context.Background(), labels, func(context.Context) {
				called = true
			})
			assert.True(t, called)
		}
	})

	t.Run("caller map is not mutated", func(t *testing.T) {
		labels := map[string]string{"My-Key": "value", "user_id": "u-1"}
		WithProfilingLabels(context.Background(), labels, func(context.Context) {})
		assert.Equal(t, map[string]string{"My-Key": "value", "user_id": "u-1"}, labels)
	})

	t.Run("all labels dropped still runs fn", func(t *testing.T) {
		called := false
		WithProfilingLabels(context.Background(), map[string]string{
			"user_id":    "u-1",
			"request_id": "r-1",
		}, func(context.Context) {
			called = true
		})
		assert.True(t, called)
	})

	t.Run("context values propagate", func(t *testing.T) {
		type ctxKey string
		ctx := context.WithValue(context.Background(), ctxKey("k"), "v")
		WithProfilingLabels(ctx, map[string]string{ProfilingLabelController: "CallHandler"}, func(c context.Context) {
			assert.Equal(t, "v", c.Value(ctxKey("k")))
		})
	})
}

func TestHTTPRequestLabels(t *testing.T) {
	t.Run("all fields set", func(t *testing.T) {
		labels := HTTPRequestLabels("calls", "/api/v1/calls/:id", "POST", "acme-telecom")
		assert.Equal(t, map[string]string{
			ProfilingLabelController: "calls",
			ProfilingLabelRoute:      "/api/v1/calls/:id",
			ProfilingLabelMethod:     "POST",
			ProfilingLabelTenantID:   "acme-telecom",
		}, labels)
	})

	t.Run("empty values are omitted", func(t *testing.T) {
		labels := HTTPRequestLabels("calls", "", "GET", "")
		assert.Equal(t, map[string]string{
			ProfilingLabelController: "calls",
			ProfilingLabelMethod:     "GET",
		}, labels)
	})

	t.Run("all empty yields no labels", func(t *testing.T) {
		assert.Empty(t, HTTPRequestLabels("", "", "", ""))
	})
}

func TestSanitizeLabels(t *testing.T) {
	t.Run("drops high cardinality keys", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{
			ProfilingLabelController: "calls",
			"user_id":                "u-1",
			"trace_id":               "t-1",
			"session_id":             "s-1",
		})
		assert.Equal(t, []string{"controller", "calls"}, pairs)
	})

	t.Run("tenant_id survives", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{ProfilingLabelTenantID: "geocell"})
		assert.Equal(t, []string{"tenant_id", "geocell"}, pairs)
	})

	t.Run("drops empty keys and values", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{
			"":                   "value",
			ProfilingLabelMethod: "",
			ProfilingLabelRoute:  "/api/v1/calls",
		})
		assert.Equal(t, []string{"route", "/api/v1/calls"}, pairs)
	})

	t.Run("truncates long values", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{
			ProfilingLabelRoute: strings.Repeat("x", MaxLabelValueLength+50),
		})
		require.Len(t, pairs, 2)
		assert.Len(t, pairs[1], MaxLabelValueLength)
	})

	t.Run("normalizes keys", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{"My Custom-Key": "value"})
		assert.Equal(t, []string{"my_custom_key", "value"}, pairs)
	})

	t.Run("output order is deterministic", func(t *testing.T) {
		labels := map[string]string{
			ProfilingLabelRoute:      "/api/v1/calls",
			ProfilingLabelController: "calls",
			ProfilingLabelMethod:     "GET",
		}
		first := sanitizeLabels(labels)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, sanitizeLabels(labels))
		}
	})

	t.Run("empty map yields nil", func(t *testing.T) {
		assert.Nil(t, sanitizeLabels(nil))
		assert.Nil(t, sanitizeLabels(map[string]string{}))
	})
}

func TestSanitizeLabelKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"controller", "controller"},
		{"My-Key", "my_key"},
		{"my key", "my_key"},
		{"UPPER", "upper"},
		{"weird!chars#", "weirdchars"},
		{"db.table", "dbtable"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabelKey(tt.in), "key %q", tt.in)
	}
}

func TestHighCardinalityLabels(t *testing.T) {
	for _, key := range []string{"user_id", "request_id", "order_id", "trace_id", "span_id", "session_id"} {
		assert.True(t, HighCardinalityLabels[key], "key %s", key)
	}
	assert.False(t, HighCardinalityLabels[ProfilingLabelTenantID])
}
