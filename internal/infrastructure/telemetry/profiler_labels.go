// Package telemetry provides Pyroscope continuous profiling integration.
package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys used when slicing profiles in the Pyroscope UI.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelTenantID   = "tenant_id"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelRegion     = "region"
)

// MaxLabelValueLength caps label values so a runaway value cannot blow up
// series cardinality.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists keys that sanitizeLabels silently drops.
// Per-request identifiers would create one profile series per request.
// tenant_id is deliberately absent: tenant counts stay low enough to be
// useful as a profile dimension.
var HighCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"order_id":   true,
	"trace_id":   true,
	"span_id":    true,
	"session_id": true,
}

// WithProfilingLabels runs fn with the given pprof labels attached, so
// samples collected inside it can be filtered by those labels. The map
// is copied and sanitized first; callers may reuse it afterwards.
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{
//	    "controller": "CallHandler",
//	    "operation":  "StartCall",
//	}, func(c context.Context) {
//	    processCall(c)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}

	labelsCopy := make(map[string]string, len(labels))
	maps.Copy(labelsCopy, labels)

	labelPairs := sanitizeLabels(labelsCopy)
	if len(labelPairs) == 0 {
		fn(ctx)
		return
	}

	pyroscope.TagWrapper(ctx, pyroscope.Labels(labelPairs...), fn)
}

// HTTPRequestLabels builds the standard label set the profiling
// middleware attaches to each request. Empty values are omitted.
func HTTPRequestLabels(controller, route, method, tenantID string) map[string]string {
	labels := make(map[string]string, 4)
	if controller != "" {
		labels[ProfilingLabelController] = controller
	}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	if tenantID != "" {
		labels[ProfilingLabelTenantID] = tenantID
	}
	return labels
}

// sanitizeLabels turns the map into the flat key/value slice pyroscope
// expects: high-cardinality and empty entries dropped, values truncated,
// keys normalized, output sorted for determinism.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		sanitizedKey := sanitizeLabelKey(key)
		if sanitizedKey == "" {
			continue
		}
		pairs = append(pairs, sanitizedKey, value)
	}

	return pairs
}

// sanitizeLabelKey normalizes a key to snake_case ASCII.
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	result := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, c)
		}
	}
	return string(result)
}
