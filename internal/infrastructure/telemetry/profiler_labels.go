package telemetry

import (
	"context"
	"maps"
	"slices"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelRole       = "role"
)

// MaxLabelValueLength caps label values so a stray path cannot blow up
// profile cardinality
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped even when a caller passes them
var highCardinalityLabels = map[string]bool{
	"user_id":    true,
	"identity":   true,
	"request_id": true,
	"flat_id":    true,
	"trace_id":   true,
}

// WithProfilingLabels runs fn with pyroscope labels attached to the goroutine.
// The map is copied, so callers may reuse it.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(maps.Clone(labels))
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels returns key/value pairs in key order
func sanitizeLabels(labels map[string]string) []string {
	keys := slices.Sorted(maps.Keys(labels))
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := labels[k]
		if k == "" || v == "" || highCardinalityLabels[k] {
			continue
		}
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
