package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by the pipeline spans.
const TracerName = "github.com/kart-io/sentinel-rag"

// Attribute keys recorded on pipeline spans.
const (
	AttrIndexName    = attribute.Key("rag.index")
	AttrDocumentName = attribute.Key("rag.document_name")
	AttrChunkCount   = attribute.Key("rag.chunk_count")
	AttrTopK         = attribute.Key("rag.top_k")
	AttrResultCount  = attribute.Key("rag.result_count")
	AttrUseLLM       = attribute.Key("rag.use_llm")
	AttrBackend      = attribute.Key("rag.store_backend")
)

// StartSpan starts a span on the global tracer provider.
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records err on the span in ctx and marks it failed. nil is a no-op.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext extracts the trace ID from the context.
// Returns an empty string if no trace is active.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
