package telemetry

import "time"

// ConnectionState is how the bridge last fared talking to a device.
type ConnectionState string

const (
	// StateConnecting means no poll has completed yet.
	StateConnecting ConnectionState = "connecting"

	// StateConnected means the most recent poll produced a Reading.
	StateConnected ConnectionState = "connected"

	// StateError means the most recent poll was absent.
	StateError ConnectionState = "error"
)

// DeviceStatus tracks the connection health of one device across polls.
//
// A successful poll resets ConsecutiveFailures and clears LastError; an
// absent poll increments ConsecutiveFailures and keeps LastSuccess, so a
// client can tell how stale the last Reading is.
type DeviceStatus struct {
	Device              string          `json:"device"`
	State               ConnectionState `json:"state"`
	LastAttempt         time.Time       `json:"last_attempt,omitzero"`
	LastSuccess         time.Time       `json:"last_success,omitzero"`
	LastError           string          `json:"last_error,omitempty"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
}

// Connected reports whether the most recent poll succeeded.
func (s DeviceStatus) Connected() bool {
	return s.State == StateConnected
}
