// Package sensorbridge bridges a Wi-Fi posture sensor module to HTTP clients,
// message brokers and a live dashboard.
//
// The sensor module (an ESP8266 with an inertial sensor) serves a plain-text
// status page over HTTP. sensorbridge fetches that page on an interval,
// extracts a structured [Reading] from it, evaluates posture thresholds and
// republishes the result.
//
// # Quick Start
//
//	dev, _ := sensorbridge.NewDevice("desk", sensorbridge.DefaultDeviceURL)
//	b, _ := sensorbridge.New(sensorbridge.WithDevice(dev))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # Extraction
//
// An [Extractor] applies one [Rule] per field. A rule anchors on the field's
// label and reads the numbers that follow it on the same line:
//
//	Accelerometer (m/s²): X=0.12 Y=-0.05 Z=9.81
//	Temperature: 24.50 °C
//
// Rules are independent. A field whose label is absent or whose number does
// not parse keeps its zero value; the other fields are unaffected. The stock
// labels can be replaced with [RulesWithLabels] for firmware that prints
// different text.
//
// Devices that already speak JSON are configured with
// [WithFormat]([FormatJSON]) and skip text extraction entirely.
//
// # Fetching and Polling
//
// A [Fetcher] performs one bounded-timeout GET and returns a Reading or
// "absent"; it never returns an error to the caller. A [Poller] repeats that
// on the device interval with no backoff and no overlap.
//
// # Architecture
//
// sensorbridge consists of several internal packages (under internal/):
//
//   - internal/transport: Pooled HTTP client with body limit and per-request timeout
//   - internal/store: Latest sample per device with pub/sub for streaming
//   - internal/server: HTTP API, SSE and WebSocket streams
//   - internal/metrics: Prometheus collectors on a private registry
//   - internal/sink: Console, log, MQTT and Redis sample publishers
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package sensorbridge
