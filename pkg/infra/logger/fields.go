// Package logger carries structured log fields on the context so that every
// line logged while serving a request shares its request, trace and index IDs.
package logger

import (
	"context"
	"maps"
	"sort"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// loggerFields holds the fields attached to a context. It is copied on write.
type loggerFields map[string]any

func getLoggerFields(ctx context.Context) loggerFields {
	if lf, ok := ctx.Value(loggerFieldsKey).(loggerFields); ok {
		return lf
	}
	return nil
}

func withField(ctx context.Context, key string, value any) context.Context {
	lf := maps.Clone(getLoggerFields(ctx))
	if lf == nil {
		lf = make(loggerFields, 1)
	}
	lf[key] = value
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withField(ctx, "request_id", requestID)
}

// WithIndex adds the vector index name to the context logger fields.
func WithIndex(ctx context.Context, index string) context.Context {
	if index == "" {
		return ctx
	}
	return withField(ctx, "index", index)
}

// WithFields adds key-value pairs to the context. A trailing key without a
// value is ignored, as are non-string keys.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}

	lf := maps.Clone(getLoggerFields(ctx))
	if lf == nil {
		lf = make(loggerFields, len(keysAndValues)/2)
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			lf[key] = keysAndValues[i+1]
		}
	}
	return context.WithValue(ctx, loggerFieldsKey, lf)
}

// WithTraceContext copies trace_id and span_id of the active span, if any,
// into the context logger fields.
func WithTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return WithFields(ctx, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}

// GetContextFields returns the context fields as a key-value slice sorted by key.
func GetContextFields(ctx context.Context) []any {
	lf := getLoggerFields(ctx)
	if len(lf) == 0 {
		return nil
	}

	keys := make([]string, 0, len(lf))
	for k := range lf {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(lf)*2)
	for _, k := range keys {
		out = append(out, k, lf[k])
	}
	return out
}

// GetLogger returns the global logger enriched with the context fields.
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()
	fields := GetContextFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
