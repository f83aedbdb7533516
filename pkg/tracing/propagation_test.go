package tracing

import (
	"context"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceparentRoundTrip(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	tp1 := Traceparent(ctx)
	if !strings.HasPrefix(tp1, "00-"+span.SpanContext().TraceID().String()) {
		t.Fatalf("unexpected traceparent %q", tp1)
	}

	restored := trace.SpanContextFromContext(ContextWithTraceparent(context.Background(), tp1))
	if restored.TraceID() != span.SpanContext().TraceID() || restored.SpanID() != span.SpanContext().SpanID() {
		t.Fatalf("round trip lost span context: %v", restored)
	}
}

func TestTraceparentWithoutSpan(t *testing.T) {
	t.Parallel()

	if got := Traceparent(context.Background()); got != "" {
		t.Fatalf("expected empty traceparent, got %q", got)
	}
	ctx := context.Background()
	if ContextWithTraceparent(ctx, "") != ctx {
		t.Fatal("empty traceparent should return ctx unchanged")
	}
}
