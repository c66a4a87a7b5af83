// Package transport sends the HTTP requests virtual users issue.
//
// The engine treats the transport as an opaque request/response function:
// it never assumes connection reuse and never retries. Cross-cutting concerns
// (rate limiting, tracing, logging) wrap a Transport as Middleware.
package transport

import (
	"context"
	"net/http"
	"time"
)

// Request is a fully interpolated request ready to send.
type Request struct {
	// Name is the scenario step name, used for spans and logs.
	Name   string
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a completed HTTP exchange. The body is fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Latency    time.Duration
}

// Transport sends a request. A non-nil error means no response was received.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Send implements Transport.
func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware decorates a Transport.
type Middleware func(Transport) Transport

// Chain wraps t so that the first middleware is the outermost.
func Chain(t Transport, mws ...Middleware) Transport {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			t = mws[i](t)
		}
	}
	return t
}
