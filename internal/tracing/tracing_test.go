package tracing_test

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"

	"github.com/torosent/surgefire/internal/config"
	"github.com/torosent/surgefire/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func TestInit(t *testing.T) {
	off := false
	on := true
	tests := []struct {
		name          string
		cfg           config.TracingConfig
		wantErr       bool
		wantPropagate bool
	}{
		{name: "disabled by default", cfg: config.TracingConfig{}},
		{name: "propagate without export", cfg: config.TracingConfig{Propagate: &on}, wantPropagate: true},
		{name: "grpc exporter", cfg: config.TracingConfig{Endpoint: "localhost:4317", Protocol: "grpc", ServiceName: "library-load", SampleRate: 1, Insecure: true}, wantPropagate: true},
		{name: "http exporter", cfg: config.TracingConfig{Endpoint: "localhost:4318", Protocol: "http", SampleRate: 0.25, Insecure: true}, wantPropagate: true},
		{name: "propagation switched off", cfg: config.TracingConfig{Endpoint: "localhost:4317", Insecure: true, Propagate: &off}},
		{name: "unsupported protocol", cfg: config.TracingConfig{Endpoint: "localhost:4317", Protocol: "thrift"}, wantErr: true},
		{name: "negative sample rate", cfg: config.TracingConfig{Endpoint: "localhost:4317", SampleRate: -0.5}, wantErr: true},
		{name: "sample rate above one", cfg: config.TracingConfig{Endpoint: "localhost:4317", SampleRate: 1.5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tracing.Init(context.Background(), tt.cfg, zaptest.NewLogger(t))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

			if got := p.ShouldPropagate(); got != tt.wantPropagate {
				t.Errorf("ShouldPropagate() = %v, want %v", got, tt.wantPropagate)
			}
		})
	}
}

func TestNilProviderIsDisabled(t *testing.T) {
	var p *tracing.Provider
	if p.ShouldPropagate() {
		t.Error("nil provider should not propagate")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("nil provider should hand out a no-op tracer")
	}
	span.End()
}

func TestStartRequestSpan(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	tests := []struct {
		name         string
		step         string
		method       string
		wantSpanName string
	}{
		{"named step", "Get Rooms", "GET", "GET Get Rooms"},
		{"unnamed step", "", "POST", "POST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			ctx := tracing.WithUser(context.Background(), 7)
			_, span := tracing.StartRequestSpan(ctx, tracer, tt.step, tt.method, "http://localhost/api/rooms")
			span.End()

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("got %d spans, want 1", len(spans))
			}
			if got := spans[0].Name; got != tt.wantSpanName {
				t.Errorf("span name = %q, want %q", got, tt.wantSpanName)
			}
			if spans[0].SpanKind != trace.SpanKindClient {
				t.Errorf("span kind = %v, want client", spans[0].SpanKind)
			}

			attrs := map[string]bool{}
			for _, attr := range spans[0].Attributes {
				attrs[string(attr.Key)] = true
				if string(attr.Key) == "http.request.method" && attr.Value.AsString() != tt.method {
					t.Errorf("http.request.method = %q", attr.Value.AsString())
				}
				if string(attr.Key) == "surgefire.user" && attr.Value.AsInt64() != 7 {
					t.Errorf("surgefire.user = %d", attr.Value.AsInt64())
				}
			}
			for _, key := range []string{"http.request.method", "url.full", "surgefire.user"} {
				if !attrs[key] {
					t.Errorf("attribute %s missing", key)
				}
			}
			if attrs["surgefire.step"] != (tt.step != "") {
				t.Errorf("surgefire.step presence = %v", attrs["surgefire.step"])
			}
		})
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-error")
	tracing.EndSpan(span, context.DeadlineExceeded)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status code = %d, want %d (Error)", spans[0].Status.Code, codes.Error)
	}
}

func TestEndSpanOk(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-ok")
	tracing.EndSpan(span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("span status code = %d, want %d (Ok)", spans[0].Status.Code, codes.Ok)
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := setupTestTracer(t)

	ctx, span := tracer.Start(context.Background(), "test-inject")
	defer span.End()

	headers := make(http.Header)
	tracing.InjectHTTPHeaders(ctx, headers)

	got := headers.Get("Traceparent")
	if got == "" {
		t.Error("traceparent header not injected")
	}
	// traceparent format: version-traceid-spanid-flags (e.g., 00-abc123...-def456...-01)
	if len(got) < 55 {
		t.Errorf("traceparent header too short: %q", got)
	}
}

func TestInjectHTTPHeadersNoSpan(t *testing.T) {
	// Without a span in context, injection should not panic and not set traceparent
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
	))
	headers := make(http.Header)
	tracing.InjectHTTPHeaders(context.Background(), headers)

	got := headers.Get("Traceparent")
	if got != "" {
		t.Errorf("traceparent header should be empty without span, got %q", got)
	}
}
