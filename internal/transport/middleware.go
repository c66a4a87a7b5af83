package transport

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/surgefire/internal/tracing"
)

// WithThrottle caps the request rate across every virtual user sharing the
// returned transport. Requests wait for a token; a cancelled context aborts
// the wait and the request is not sent.
func WithThrottle(rps float64, burst int) Middleware {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next Transport) Transport {
		return Func(func(ctx context.Context, req *Request) (*Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("throttle: %w", err)
			}
			return next.Send(ctx, req)
		})
	}
}

// WithTracing wraps each request in a client span and propagates W3C trace
// context to the target when the provider asks for it.
func WithTracing(p *tracing.Provider) Middleware {
	if p == nil {
		return nil
	}
	tracer := p.Tracer()
	propagate := p.ShouldPropagate()
	return func(next Transport) Transport {
		return Func(func(ctx context.Context, req *Request) (*Response, error) {
			ctx, span := tracing.StartRequestSpan(ctx, tracer, req.Name, req.Method, req.URL)
			if propagate {
				out := *req
				out.Header = req.Header.Clone()
				if out.Header == nil {
					out.Header = make(map[string][]string)
				}
				tracing.InjectHTTPHeaders(ctx, out.Header)
				req = &out
			}
			resp, err := next.Send(ctx, req)
			var attrs []attribute.KeyValue
			if resp != nil {
				attrs = append(attrs, attribute.Int("http.response.status_code", resp.StatusCode))
			}
			tracing.EndSpan(span, err, attrs...)
			return resp, err
		})
	}
}

// WithLogging logs each request at debug level and transport errors at warn.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		return nil
	}
	logger = logger.With(zap.String("component", "transport"))
	return func(next Transport) Transport {
		return Func(func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next.Send(ctx, req)
			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("request failed",
					zap.String("step", req.Name),
					zap.String("method", req.Method),
					zap.String("url", req.URL),
					zap.Duration("elapsed", elapsed),
					zap.Error(err))
				return resp, err
			}
			if ce := logger.Check(zap.DebugLevel, "request completed"); ce != nil {
				ce.Write(
					zap.String("step", req.Name),
					zap.String("method", req.Method),
					zap.String("url", req.URL),
					zap.Int("status", resp.StatusCode),
					zap.Duration("elapsed", elapsed))
			}
			return resp, err
		})
	}
}
