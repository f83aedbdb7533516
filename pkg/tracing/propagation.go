package tracing

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
)

const TraceparentHeader = "traceparent"

var traceContext = propagation.TraceContext{}

// Traceparent renders the span in ctx as a W3C traceparent value. It returns
// "" when ctx carries no valid span context.
func Traceparent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	traceContext.Inject(ctx, carrier)
	return carrier.Get(TraceparentHeader)
}

// ContextWithTraceparent is the inverse of Traceparent.
func ContextWithTraceparent(ctx context.Context, traceparent string) context.Context {
	if traceparent == "" {
		return ctx
	}
	return traceContext.Extract(ctx, propagation.MapCarrier{TraceparentHeader: traceparent})
}
