// Package telemetry defines the structured records produced by sensorbridge.
//
// The types in this package are plain values with JSON tags. They carry no
// behaviour beyond formatting and are shared by the root package, the
// internal store, the API server and the sinks, so they live in a leaf
// package with no dependencies of its own.
//
//   - [Reading]: one snapshot of all sensor fields at a fetch instant
//   - [Vector]: an x/y/z triple (accelerometer, gyroscope)
//   - [Sample]: a Reading stamped with its device, fetch time and alerts
//   - [Alert]: a posture threshold breach attached to a Sample
package telemetry
