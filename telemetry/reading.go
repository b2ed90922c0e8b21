package telemetry

import (
	"fmt"
	"time"
)

// Vector is a three-axis measurement in the units reported by the device.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// String formats the vector as "X=.. Y=.. Z=..".
func (v Vector) String() string {
	return fmt.Sprintf("X=%.2f Y=%.2f Z=%.2f", v.X, v.Y, v.Z)
}

// Reading is an immutable snapshot of the sensor module at one fetch instant.
//
// Every field is always present. A field the device did not report holds
// zero (or the zero vector); the JSON encoding therefore never omits a key.
type Reading struct {
	Accelerometer Vector  `json:"accelerometer"`
	Gyroscope     Vector  `json:"gyroscope"`
	Temperature   float64 `json:"temperature"`
	PostureAngle  float64 `json:"posture_angle"`
	PitchAngle    float64 `json:"pitch_angle"`
	RollAngle     float64 `json:"roll_angle"`
}

// IsZero reports whether every field holds its default value.
func (r Reading) IsZero() bool {
	return r == Reading{}
}

// String renders the reading as a single console line.
func (r Reading) String() string {
	return fmt.Sprintf("accel[%s] gyro[%s] temp=%.2f posture=%.2f pitch=%.2f roll=%.2f",
		r.Accelerometer, r.Gyroscope, r.Temperature, r.PostureAngle, r.PitchAngle, r.RollAngle)
}

// Sample is a Reading attributed to the device it was fetched from.
type Sample struct {
	// Device is the configured device name.
	Device string `json:"device"`

	// Reading is the extracted telemetry.
	Reading Reading `json:"reading"`

	// FetchedAt is when the fetch completed, in UTC.
	FetchedAt time.Time `json:"fetched_at"`

	// LatencyMs is the round-trip time of the HTTP request.
	LatencyMs int64 `json:"latency_ms"`

	// Alerts lists threshold breaches detected for this reading.
	Alerts []Alert `json:"alerts,omitempty"`
}

// AlertKind names the angle an [Alert] was raised for.
type AlertKind string

const (
	AlertPosture AlertKind = "posture"
	AlertPitch   AlertKind = "pitch"
	AlertRoll    AlertKind = "roll"
)

// Alert describes a reading that crossed a configured angle threshold.
type Alert struct {
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
}
