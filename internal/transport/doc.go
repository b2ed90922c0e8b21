// Package transport provides the HTTP client used to fetch device pages.
//
// This package is internal to sensorbridge. It wraps net/http with a
// per-request timeout applied through the context, a response size cap, and
// a small connection pool sized for a handful of devices on a local network.
//
// Users of the sensorbridge library should not need to interact with this
// package directly; [sensorbridge.Fetcher] owns a Client.
package transport
