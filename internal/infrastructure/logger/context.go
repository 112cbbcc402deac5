package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	identityKey  contextKey = "identity"
	roleKey      contextKey = "role"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and an enriched logger in ctx
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithContext(ctx, logger.With(zap.String("request_id", requestID)))
}

// WithIdentity stores the acting identity and role and an enriched logger in ctx
func WithIdentity(ctx context.Context, logger *zap.Logger, identity, role string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	ctx = context.WithValue(ctx, roleKey, role)
	return WithContext(ctx, logger.With(zap.String("identity", identity), zap.String("role", role)))
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetIdentity retrieves the acting identity from context
func GetIdentity(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

// GetRole retrieves the acting role from context
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// GetTraceID extracts the trace ID of the active span, or ""
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// L returns the context logger with trace_id and span_id attached when a
// span is active.
//
//	logger.L(ctx).Warn("address lookup failed", zap.Error(err))
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}

// WithTraceContext adds trace_id and span_id from ctx to logger
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
