package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/torosent/surgefire/internal/config"
	"github.com/torosent/surgefire/internal/tracing"
)

func TestHTTPSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"email":"a@b.c"}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"userId":1}`))
	}))
	defer srv.Close()

	h := NewHTTPWithClient(srv.Client())
	resp, err := h.Send(context.Background(), &Request{
		Name:   "Register",
		Method: http.MethodPost,
		URL:    srv.URL + "/api/auth/register",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"email":"a@b.c"}`),
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if string(resp.Body) != `{"userId":1}` {
		t.Errorf("body = %s", resp.Body)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("response header missing")
	}
	if resp.Latency <= 0 {
		t.Errorf("latency = %s, want > 0", resp.Latency)
	}
}

func TestHTTPSendTimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	h := NewHTTP(50 * time.Millisecond)
	_, err := h.Send(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(time.Second).Send(context.Background(), &Request{Method: http.MethodGet, URL: url})
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestHTTPSendTruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer srv.Close()

	h := NewHTTPWithClient(srv.Client())
	h.maxBodyBytes = 100
	resp, err := h.Send(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("body length = %d, want 100", len(resp.Body))
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Transport) Transport {
			return Func(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name)
				return next.Send(ctx, req)
			})
		}
	}
	base := Func(func(ctx context.Context, req *Request) (*Response, error) {
		order = append(order, "base")
		return &Response{StatusCode: 200}, nil
	})

	tr := Chain(base, mark("outer"), nil, mark("inner"))
	if _, err := tr.Send(context.Background(), &Request{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	want := []string{"outer", "inner", "base"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestWithThrottleLimitsRate(t *testing.T) {
	var mu sync.Mutex
	count := 0
	base := Func(func(ctx context.Context, req *Request) (*Response, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return &Response{StatusCode: 200}, nil
	})
	tr := Chain(base, WithThrottle(20, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 260*time.Millisecond)
	defer cancel()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				_, _ = tr.Send(ctx, &Request{})
			}
		}()
	}
	wg.Wait()

	// 20 rps with burst 1 over ~260ms allows about 6 requests.
	if count < 3 || count > 8 {
		t.Errorf("throttled count = %d, want roughly 6", count)
	}
}

func TestWithThrottleDisabled(t *testing.T) {
	if WithThrottle(0, 10) != nil {
		t.Error("expected nil middleware for zero rate")
	}
}

func TestWithThrottleCancelledContext(t *testing.T) {
	called := false
	tr := Chain(Func(func(ctx context.Context, req *Request) (*Response, error) {
		called = true
		return &Response{}, nil
	}), WithThrottle(0.001, 1))

	// Consume the only token.
	_, _ = tr.Send(context.Background(), &Request{})
	called = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Send(ctx, &Request{}); err == nil {
		t.Fatal("expected error for cancelled wait")
	}
	if called {
		t.Error("request sent despite cancelled throttle wait")
	}
}

func TestWithTracingPropagatesContext(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	provider, err := tracing.Init(context.Background(), config.TracingConfig{Propagate: boolPtr(true)}, nil)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	var seen http.Header
	base := Func(func(ctx context.Context, req *Request) (*Response, error) {
		seen = req.Header
		return &Response{StatusCode: 200}, nil
	})
	original := http.Header{"Accept": []string{"application/json"}}
	tr := Chain(base, WithTracing(provider))

	// The provider has no exporter of its own, so spans come from the
	// tracer in this test only when started explicitly.
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	_, err = tr.Send(ctx, &Request{Name: "Get Rooms", Method: "GET", URL: "http://x/api/rooms", Header: original})
	span.End()
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if seen.Get("Traceparent") == "" {
		t.Error("traceparent not propagated")
	}
	if original.Get("Traceparent") != "" {
		t.Error("caller headers must not be mutated")
	}
}

func TestWithLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	ok := Func(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	})
	bad := Func(func(ctx context.Context, req *Request) (*Response, error) {
		return nil, errors.New("connection refused")
	})

	_, _ = Chain(ok, WithLogging(logger)).Send(context.Background(), &Request{Name: "Get Rooms", Method: "GET", URL: "http://x"})
	_, _ = Chain(bad, WithLogging(logger)).Send(context.Background(), &Request{Name: "Login", Method: "POST", URL: "http://x"})

	if got := logs.FilterMessage("request completed").Len(); got != 1 {
		t.Errorf("debug entries = %d, want 1", got)
	}
	warn := logs.FilterMessage("request failed").All()
	if len(warn) != 1 {
		t.Fatalf("warn entries = %d, want 1", len(warn))
	}
	if warn[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %s, want warn", warn[0].Level)
	}
	if warn[0].ContextMap()["step"] != "Login" {
		t.Errorf("step field = %v", warn[0].ContextMap()["step"])
	}
}

func boolPtr(b bool) *bool { return &b }
