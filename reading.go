package sensorbridge

import "github.com/jpalmerr/sensorbridge/telemetry"

// Reading is one structured snapshot of all sensor fields. See [telemetry.Reading].
type Reading = telemetry.Reading

// Vector is an x/y/z triple. See [telemetry.Vector].
type Vector = telemetry.Vector

// Sample is a Reading attributed to a device. See [telemetry.Sample].
type Sample = telemetry.Sample

// Alert is a threshold breach. See [telemetry.Alert].
type Alert = telemetry.Alert

// DeviceStatus is the connection health of a device. See [telemetry.DeviceStatus].
type DeviceStatus = telemetry.DeviceStatus

// ConnectionState is the state reported in a DeviceStatus.
type ConnectionState = telemetry.ConnectionState

const (
	StateConnecting = telemetry.StateConnecting
	StateConnected  = telemetry.StateConnected
	StateError      = telemetry.StateError
)
