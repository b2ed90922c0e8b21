package sensorbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/sensorbridge/internal/transport"
)

// Result is the detailed outcome of one fetch.
type Result struct {
	// Reading is the decoded telemetry. Valid only when Err is nil.
	Reading Reading

	// Err is a *TransportError when no Reading was obtained.
	Err error

	// StatusCode is the HTTP status code, zero if no response arrived.
	StatusCode int

	// Latency is the round-trip time of the request.
	Latency time.Duration

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time

	// Fields holds per-field extraction outcomes for text devices.
	Fields []FieldResult
}

// OK reports whether a Reading was obtained.
func (r Result) OK() bool {
	return r.Err == nil
}

// recorder receives fetch and extraction outcomes; internal/metrics
// implements it.
type recorder interface {
	ObserveFetch(device, outcome string, latency time.Duration)
	ObserveField(device, field, reason string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, string, time.Duration) {}
func (nopRecorder) ObserveField(string, string, string)        {}

// Fetcher performs bounded-timeout fetches against one [Device].
//
// Each call issues a single GET with the device's timeout and headers,
// decodes the body with the decoder chosen for the device's [Format] and
// returns either a Reading or "absent". Absent covers every way a fetch can
// go wrong: connection refused, DNS failure, timeout, non-2xx status, a body
// that cannot be read, or a JSON payload that does not decode.
//
// Failures never escape as errors. [Fetcher.Fetch] logs them at warn level
// and reports false; [Fetcher.FetchResult] additionally returns the
// [*TransportError] for callers that track connection state. Text pages are
// always usable: fields the extractor cannot find stay at zero and are
// logged individually.
//
// Fetcher is safe for concurrent use; concurrent calls each own their
// request and response buffer. The poller and the on-demand API route share
// one Fetcher per device.
type Fetcher struct {
	device   Device
	client   *transport.Client
	decode   Decoder
	logger   *slog.Logger
	recorder recorder
}

// NewFetcher creates a Fetcher for d. A nil logger falls back to [slog.Default].
func NewFetcher(d Device, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		device:   d,
		client:   transport.NewClient(),
		decode:   decoderFor(d.format, d.extractor),
		logger:   logger.With("device", d.name),
		recorder: nopRecorder{},
	}
}

// Device returns the device this fetcher targets.
func (f *Fetcher) Device() Device {
	return f.device
}

// Fetch performs one fetch and returns the Reading, or false when the device
// was unreachable, timed out, answered non-2xx, or sent an unusable payload.
// Failures are logged at warn level; Fetch never returns an error.
func (f *Fetcher) Fetch(ctx context.Context) (Reading, bool) {
	result := f.FetchResult(ctx)
	if !result.OK() {
		return Reading{}, false
	}
	return result.Reading, true
}

// FetchResult performs one fetch and returns the detailed [Result]. It logs
// and records metrics exactly like [Fetcher.Fetch].
func (f *Fetcher) FetchResult(ctx context.Context) Result {
	resp := f.client.Do(ctx, transport.Request{
		URL:     f.device.url,
		Headers: f.device.headers,
		Accept:  f.device.format.accept(),
		Timeout: f.device.timeout,
	})
	if resp.Truncated {
		f.logger.Warn("response truncated", "url", f.device.url, "limit_bytes", transport.MaxBodySize)
	}

	result := Result{
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		FetchedAt:  time.Now().UTC(),
	}

	switch {
	case resp.Err != nil:
		result.Err = f.transportError(resp.StatusCode, resp.Err)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		result.Err = f.transportError(resp.StatusCode, ErrUnexpectedStatus)
	default:
		reading, fields, err := f.decode(resp.Body)
		if err != nil {
			result.Err = f.transportError(resp.StatusCode, err)
		} else {
			result.Reading = reading
			result.Fields = fields
		}
	}

	f.report(result)
	return result
}

// Close releases idle connections held by the fetcher.
func (f *Fetcher) Close() {
	f.client.Close()
}

func (f *Fetcher) transportError(status int, err error) error {
	return &TransportError{
		Device:     f.device.name,
		URL:        f.device.url,
		StatusCode: status,
		Err:        err,
	}
}

// report logs the outcome and feeds the recorder.
func (f *Fetcher) report(result Result) {
	if result.Err != nil {
		f.recorder.ObserveFetch(f.device.name, "absent", result.Latency)
		f.logger.Warn("fetch failed",
			"url", f.device.url,
			"status_code", result.StatusCode,
			"latency_ms", result.Latency.Milliseconds(),
			"error", result.Err.Error(),
		)
		return
	}

	f.recorder.ObserveFetch(f.device.name, "ok", result.Latency)
	for _, field := range result.Fields {
		if field.OK() {
			continue
		}
		reason := "missing"
		if fe, ok := field.Err.(*FieldError); ok {
			reason = fe.Reason()
		}
		f.recorder.ObserveField(f.device.name, string(field.Field), reason)
	}
	LogFieldResults(f.logger, result.Fields)
}

// String implements fmt.Stringer for log output.
func (f *Fetcher) String() string {
	return fmt.Sprintf("fetcher(%s %s %s)", f.device.name, f.device.format, f.device.url)
}
