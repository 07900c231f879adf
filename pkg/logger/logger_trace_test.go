package logger_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/cwrk-planet/canvas-service/pkg/logger"

	"go.opentelemetry.io/otel/trace"
)

func tracedCtx(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatalf("trace id: %v", err)
	}
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatalf("span id: %v", err)
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc), sc
}

func TestAttrsFromCtx_TracedRequest(t *testing.T) {
	ctx, sc := tracedCtx(t)

	got := asMap(logger.AttrsFromCtx(ctx))
	if got["trace_id"] != sc.TraceID().String() {
		t.Fatalf("trace_id = %q, want %q", got["trace_id"], sc.TraceID())
	}
	if got["span_id"] != sc.SpanID().String() {
		t.Fatalf("span_id = %q, want %q", got["span_id"], sc.SpanID())
	}
}

func TestAttrsFromCtx_NoSpan(t *testing.T) {
	if attrs := logger.AttrsFromCtx(context.Background()); attrs != nil {
		t.Fatalf("expected nil without a span, got %v", attrs)
	}
}

func TestAttrsFromCtx_PropagatesTraceIDs(t *testing.T) {
	ctx, _ := tracedCtx(t)

	outStr := captureStdOut(func() {
		logger.Init(logger.Config{
			Service:          "demo",
			Env:              logger.EnvProd,
			Backend:          logger.BackendZap,
			SampleInitial:    100000,
			SampleThereafter: 100000,
		})

		slog.InfoContext(ctx, "with trace", toAttrsFromCtx(ctx)...)
	})

	var m map[string]any
	if err := json.Unmarshal([]byte(outStr), &m); err != nil {
		t.Fatalf("expected JSON, got: %s, err=%v", outStr, err)
	}

	if m["trace_id"] == nil || m["span_id"] == nil {
		t.Fatalf("trace_id/span_id missing in log: %v", m)
	}
	if m["msg"] != "with trace" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
}
