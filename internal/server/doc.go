// Package server provides the HTTP API for sensorbridge.
//
// This package is internal to sensorbridge and handles all HTTP concerns:
//
//   - GET /api/sensor-data: fresh fetch from the primary device, Reading JSON or 500
//   - GET /api/devices, /api/devices/{name}/sensor-data, /api/devices/{name}/latest
//   - GET /api/sse: Server-Sent Events stream of samples
//   - GET /api/ws: WebSocket stream of samples
//   - GET /metrics, /healthz, and the embedded dashboard at "/"
//
// Every response carries permissive CORS headers; there is no authentication
// or rate limiting. The server supports graceful shutdown via context
// cancellation, with a 5-second timeout for in-flight requests.
package server
