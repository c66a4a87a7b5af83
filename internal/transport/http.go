package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultMaxBodyBytes caps how much of a response body is kept for checks.
const DefaultMaxBodyBytes = 10 << 20

// HTTP sends requests with a pooled net/http client.
type HTTP struct {
	client       *http.Client
	maxBodyBytes int64
}

// NewHTTP returns an HTTP transport whose requests time out after timeout.
// A zero timeout disables the client-side deadline.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{client: NewClient(timeout), maxBodyBytes: DefaultMaxBodyBytes}
}

// NewHTTPWithClient wraps an existing client, e.g. one from httptest.
func NewHTTPWithClient(client *http.Client) *HTTP {
	if client == nil {
		client = NewClient(0)
	}
	return &HTTP{client: client, maxBodyBytes: DefaultMaxBodyBytes}
}

// Send implements Transport.
func (h *HTTP) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	// Drain the remainder so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Latency:    time.Since(start),
	}, nil
}

// NewClient returns a client tuned for many concurrent virtual users.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
