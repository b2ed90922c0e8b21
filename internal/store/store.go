package store

import (
	"time"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

// Store defines the interface for storing and subscribing to samples.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a sample and notifies all subscribers.
	// Samples are keyed by Device, so later samples replace earlier ones.
	// The device's status becomes connected.
	Update(sample telemetry.Sample)

	// Latest returns the most recent sample for a device.
	Latest(device string) (telemetry.Sample, bool)

	// GetAll returns the latest sample of every device, ordered by device name.
	GetAll() []telemetry.Sample

	// RecordFailure marks an absent poll for device and returns the updated
	// status. The last stored sample is kept.
	RecordFailure(device string, at time.Time, err error) telemetry.DeviceStatus

	// Status returns the connection status of a device. A device that was
	// never updated nor failed reports false.
	Status(device string) (telemetry.DeviceStatus, bool)

	// Subscribe returns a channel that receives samples as they are stored.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan telemetry.Sample

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan telemetry.Sample)
}
