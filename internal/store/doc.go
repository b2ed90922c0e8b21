// Package store keeps the latest sample per device and fans updates out to
// subscribers.
//
// This package is internal to sensorbridge. The pollers write into it and the
// API server reads from it for the /latest, SSE and WebSocket routes. The
// fresh-fetch route (/api/sensor-data) never goes through the store.
//
//   - [Store]: interface defining storage and subscription operations
//   - [MemoryStore]: in-memory implementation with pub/sub
//
// Subscribers receive updates via buffered channels with non-blocking sends;
// slow subscribers miss updates rather than stall the pollers.
package store
