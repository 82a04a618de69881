package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for all spans started by this module.
const TracerName = "github.com/teemow/salesmcp"

// Span attribute keys.
const (
	SpanAttrTool         = "mcp.tool"
	SpanAttrAction       = "mcp.action"
	SpanAttrInvocationID = "mcp.invocation_id"
	SpanAttrStatus       = "mcp.status"
	SpanAttrService      = "api.service"
	SpanAttrOperation    = "api.operation"
	SpanAttrProvider     = "credential.provider"
)

// OperationTokenRefresh is the API operation name of an OAuth2 refresh.
const OperationTokenRefresh = "token_refresh"

// StartToolSpan starts a server span for a registry dispatch.
// The caller ends the span.
func StartToolSpan(ctx context.Context, tool, action string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all,
		attribute.String(SpanAttrTool, tool),
		attribute.String(SpanAttrAction, action),
	)
	all = append(all, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+tool,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartAPISpan starts a client span for a provider API call,
// named "<service>.<operation>".
func StartAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	all = append(all, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, service+"."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartRefreshSpan starts a client span for an OAuth2 token refresh,
// named "<provider>.token_refresh".
func StartRefreshSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return StartAPISpan(ctx, provider, OperationTokenRefresh, attribute.String(SpanAttrProvider, provider))
}

// AnnotateToolSpan records the invocation id and outcome of inv on span.
func AnnotateToolSpan(span trace.Span, inv *ToolInvocation) {
	span.SetAttributes(
		attribute.String(SpanAttrInvocationID, inv.InvocationID),
		attribute.String(SpanAttrStatus, inv.Status()),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanFailure marks the span failed with a message when there is no error value.
func SetSpanFailure(span trace.Span, msg string) {
	span.SetStatus(codes.Error, msg)
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
