package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"
)

func TestClient_Do_ReturnsBodyAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("X-Device-Key"); got != "abc" {
			t.Errorf("X-Device-Key = %q, want %q", got, "abc")
		}
		if got := r.Header.Get("Accept"); got != "text/plain" {
			t.Errorf("Accept = %q, want text/plain", got)
		}
		if got := r.Header.Get("User-Agent"); got != UserAgent {
			t.Errorf("User-Agent = %q, want %q", got, UserAgent)
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Temperature: 21.0"))
	}))
	defer server.Close()

	client := NewClient()
	defer client.Close()

	resp := client.Do(context.Background(), Request{URL: server.URL, Headers: map[string]string{"X-Device-Key": "abc"}, Accept: "text/plain", Timeout: time.Second})
	if resp.Err != nil {
		t.Fatalf("Do() error = %v", resp.Err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want text/plain", resp.ContentType)
	}
	if string(resp.Body) != "Temperature: 21.0" {
		t.Errorf("Body = %q", resp.Body)
	}
	if resp.Latency <= 0 {
		t.Errorf("Latency = %v, want > 0", resp.Latency)
	}
}

func TestClient_Do_NonSuccessStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{URL: server.URL, Timeout: time.Second})
	if resp.Err != nil {
		t.Fatalf("Do() error = %v, want nil (status handling belongs to the caller)", resp.Err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", resp.StatusCode)
	}
}

func TestClient_Do_TimeoutBoundsHungServer(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	resp := NewClient().Do(context.Background(), Request{URL: server.URL, Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	if resp.Err == nil {
		t.Fatal("Do() error = nil, want timeout")
	}
	if !errors.Is(resp.Err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", resp.Err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Do() took %v, want close to the 100ms timeout", elapsed)
	}
}

func TestClient_Do_LimitsBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", MaxBodySize+512)))
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{URL: server.URL, Timeout: 5 * time.Second})
	if resp.Err != nil {
		t.Fatalf("Do() error = %v", resp.Err)
	}
	if len(resp.Body) != MaxBodySize {
		t.Errorf("len(Body) = %d, want %d", len(resp.Body), MaxBodySize)
	}
	if !resp.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestClient_Do_ExactlyMaxBodySizeIsNotTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", MaxBodySize)))
	}))
	defer server.Close()

	resp := NewClient().Do(context.Background(), Request{URL: server.URL, Timeout: 5 * time.Second})
	if resp.Err != nil {
		t.Fatalf("Do() error = %v", resp.Err)
	}
	if resp.Truncated || len(resp.Body) != MaxBodySize {
		t.Errorf("Truncated = %v, len(Body) = %d", resp.Truncated, len(resp.Body))
	}
}

func TestClient_Do_CallerContextBoundsWithoutTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	resp := NewClient().Do(ctx, Request{URL: server.URL})
	if !errors.Is(resp.Err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", resp.Err)
	}
}

func TestClient_Do_InvalidURL(t *testing.T) {
	resp := NewClient().Do(context.Background(), Request{URL: "http://[::1", Timeout: time.Second})
	if resp.Err == nil {
		t.Fatal("Do() error = nil, want request creation error")
	}
	if !strings.Contains(resp.Err.Error(), "failed to create request") {
		t.Errorf("error = %v, want 'failed to create request'", resp.Err)
	}
}

// TestClient_ConnectionReuse verifies that sequential polls of the same
// device reuse the pooled connection.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient()

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5
	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Do(ctx, Request{URL: server.URL, Timeout: 5 * time.Second})
		if resp.Err != nil {
			t.Fatalf("request %d failed: %v", i, resp.Err)
		}
	}

	expectedMinReuse := numRequests - 2 // allow some tolerance
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

func TestClient_Close(t *testing.T) {
	client := NewClient()
	client.Close()
	client.Close()

	var nilClient *Client
	nilClient.Close()
}
