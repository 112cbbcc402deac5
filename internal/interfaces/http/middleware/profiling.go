package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/housing/backend/internal/infrastructure/telemetry"
)

// Profiling attaches pyroscope labels (route, method, controller, role) to
// the goroutine serving each request. Health and swagger are skipped.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/swagger") {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	labels := map[string]string{
		telemetry.ProfilingLabelMethod:     c.Request.Method,
		telemetry.ProfilingLabelRoute:      route,
		telemetry.ProfilingLabelController: controllerOf(route),
	}
	if caller, ok := GetCaller(c); ok {
		labels[telemetry.ProfilingLabelRole] = string(caller.Role)
	}
	return labels
}

// controllerOf returns the first resource segment of a route pattern:
// "/api/v1/buildings/:id/flats" -> "buildings"
func controllerOf(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || (s[0] != 'v' && s[0] != 'V') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
