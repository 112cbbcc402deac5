package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/housing/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing wraps otelgin. Spans are named after the route pattern. Health
// checks are not traced.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/health"
	}))
}

// TracingIdentity tags the active span with the caller and request ID.
// Only 5xx responses set an error status on the span.
func TracingIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if caller, ok := GetCaller(c); ok {
				span.SetAttributes(
					attribute.String(telemetry.SpanAttrIdentity, caller.ID.String()),
					attribute.String(telemetry.SpanAttrRole, string(caller.Role)),
				)
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
			return
		}
		// a 404 or 409 is an expected outcome; only record it
		span.SetAttributes(attribute.String("http.client_error", http.StatusText(status)))
	}
}
