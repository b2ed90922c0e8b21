package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBodySize caps how much of a response body is read.
const MaxBodySize = 1 << 20 // 1MB

// UserAgent identifies the bridge to devices.
const UserAgent = "sensorbridge"

// the module's web server handles one connection at a time, so keep the
// per-host pool small
const (
	defaultMaxIdleConns        = 16
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 30 * time.Second
)

// Request describes one device page fetch.
type Request struct {
	URL string

	// Headers are sent as-is and may override Accept and User-Agent.
	Headers map[string]string

	// Accept is the media type asked for. Empty sends no Accept header.
	Accept string

	// Timeout bounds the whole exchange, body included. Zero means the
	// caller's context is the only bound.
	Timeout time.Duration
}

// Response is the outcome of a [Client.Do] call.
type Response struct {
	// Body holds at most [MaxBodySize] bytes of the response.
	Body []byte

	// Truncated is set when the device sent more than MaxBodySize bytes.
	Truncated bool

	// StatusCode is zero if no response arrived.
	StatusCode int

	ContentType string

	// Latency covers the request from dialling to the last body byte.
	Latency time.Duration

	// Err is set when no complete response could be read. A non-2xx status
	// is not an error at this layer.
	Err error
}

// Client fetches device pages over a dedicated connection pool.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so devices with different bounds can share one Client. Response bodies are
// limited to [MaxBodySize]; anything beyond is discarded and reported through
// [Response.Truncated] rather than as an error.
//
// Every request identifies itself with [UserAgent] and asks for the media
// type in [Request.Accept]. Client never returns an error directly: failures
// are carried in [Response.Err] so callers can still log latency and status.
// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a [Client].
//
// The pool is sized for small embedded web servers that serve one
// connection at a time:
//   - MaxIdleConns: 16 total idle connections
//   - MaxIdleConnsPerHost: 2 idle connections per device
//   - MaxConnsPerHost: 4 concurrent connections per device
//   - IdleConnTimeout: 30 seconds before closing idle connections
//
// Proxies from the environment are honoured. Call [Client.Close] to release
// idle connections on shutdown.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Do issues a GET for req. It always returns a Response; failures are
// reported in Response.Err.
func (c *Client) Do(ctx context.Context, req Request) Response {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	fail := func(status int, err error) Response {
		return Response{StatusCode: status, Latency: time.Since(start), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fail(0, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("User-Agent", UserAgent)
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(0, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	// one extra byte tells a body of exactly MaxBodySize from a longer one
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	truncated := len(body) > MaxBodySize
	if truncated {
		body = body[:MaxBodySize]
	}

	return Response{
		Body:        body,
		Truncated:   truncated,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Latency:     time.Since(start),
	}
}

// Close drops idle pooled connections. Safe to call multiple times and on a
// nil Client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
