// Package tracing carries W3C trace-context strings across the wire
// boundary between scheduler and worker, the same propagate-then-span
// shape session.go in the kandev agent lifecycle package uses for
// SessionTraceContext: a span is extracted into a context.Context on one
// side and re-attached on the other, independent of whichever
// trace.TracerProvider is actually registered (a no-op one by default).
package tracing

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cuemby/durabletask"

// Tracer returns the package's tracer from whatever provider the host
// process has registered with otel.SetTracerProvider; if none was
// registered this is the global no-op provider and spans are free.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// ContextFromTraceParent parses a W3C traceparent header value (spec
// §4.1's ActivityRequest.TraceContext field) and returns a context.Context
// carrying the remote span it names. An empty or malformed traceParent
// returns ctx unchanged.
func ContextFromTraceParent(ctx context.Context, traceParent string) context.Context {
	sc, ok := parseTraceParent(traceParent)
	if !ok {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// TraceParent renders ctx's current span as a W3C traceparent string for
// forwarding to a sub-orchestration or activity call; it returns "" when
// ctx carries no valid span.
func TraceParent(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	flags := "00"
	if sc.IsSampled() {
		flags = "01"
	}
	return fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), flags)
}

// parseTraceParent implements the "00-<32 hex>-<16 hex>-<2 hex>" grammar
// from the W3C Trace Context spec, the only version this worker emits or
// accepts.
func parseTraceParent(s string) (trace.SpanContext, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 || parts[0] != "00" {
		return trace.SpanContext{}, false
	}
	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return trace.SpanContext{}, false
	}
	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return trace.SpanContext{}, false
	}
	flagsRaw, err := hex.DecodeString(parts[3])
	if err != nil || len(flagsRaw) != 1 {
		return trace.SpanContext{}, false
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(flagsRaw[0]),
		Remote:     true,
	}), true
}
