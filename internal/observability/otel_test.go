package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestOtelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, broken ,=nokey,tenant=kb")
	t.Setenv("OTEL_SAMPLER_RATIO", "4")

	cfg := OtelConfigFromEnv("knowledge-backend", "test", "v1")
	if !cfg.Enabled || cfg.SampleRatio != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Headers) != 2 || cfg.Headers["x-api-key"] != "abc" || cfg.Headers["tenant"] != "kb" {
		t.Fatalf("headers: %v", cfg.Headers)
	}
	if parseHeaders("") != nil || clampRatio(-1) != 0 {
		t.Fatalf("empty headers or negative ratio mishandled")
	}
}

func TestSpansAreNoopWithoutInit(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "knowledge.resolve")
	if span.IsRecording() || trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.Fatalf("span should be a no-op before InitOTel")
	}
	EndSpan(span, errors.New("boom"))
	EndSpan(nil, nil)
}
