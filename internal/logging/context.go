package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxRequestIDLen = 128

type requestCtxKey struct{}
type collectionCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation fields from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if name := CollectionFromContext(ctx); name != "" {
		fields = append(fields, zap.String("collection", name))
	}
	return fields
}

// WithRequestID stores a request id. Empty ids are ignored and overlong ids
// are truncated.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	if len(id) > maxRequestIDLen {
		id = id[:maxRequestIDLen]
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithCollection stores the collection name an operation targets.
func WithCollection(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, collectionCtxKey{}, name)
}

// CollectionFromContext returns the collection name or "".
func CollectionFromContext(ctx context.Context) string {
	name, _ := ctx.Value(collectionCtxKey{}).(string)
	return name
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
