package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTraceHandlerAddsSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "e-tutor-test", slog.LevelInfo)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "booking created")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["trace_id"] != traceID.String() {
		t.Fatalf("expected trace_id %s, got %v", traceID, record["trace_id"])
	}
	if record["span_id"] != spanID.String() {
		t.Fatalf("expected span_id %s, got %v", spanID, record["span_id"])
	}
	if record["service"] != "e-tutor-test" {
		t.Fatalf("expected service attr, got %v", record["service"])
	}
}

func TestTraceHandlerSkipsWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "svc", slog.LevelInfo).Info("plain")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := record["trace_id"]; ok {
		t.Fatal("did not expect trace_id without an active span")
	}
}
