package store

import (
	"sort"
	"sync"
	"time"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 64

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore keeps the latest sample and the connection status of every
// device, keyed by device name. A new sample replaces the previous one; a
// failed poll only touches the status, so the last good Reading stays
// available while the device is unreachable.
//
// Subscribers receive samples via buffered channels (buffer size 64). Updates
// are sent non-blocking; if a subscriber's buffer is full, the sample is
// dropped for that subscriber so one slow client cannot stall the pollers.
// Failures are not broadcast.
type MemoryStore struct {
	mu          sync.RWMutex
	samples     map[string]telemetry.Sample
	statuses    map[string]telemetry.DeviceStatus
	subscribers map[chan telemetry.Sample]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store].
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		samples:     make(map[string]telemetry.Sample),
		statuses:    make(map[string]telemetry.DeviceStatus),
		subscribers: make(map[chan telemetry.Sample]struct{}),
	}
}

// Update stores sample under its device name, marks the device connected and
// notifies subscribers.
func (m *MemoryStore) Update(sample telemetry.Sample) {
	sample.Alerts = append([]telemetry.Alert(nil), sample.Alerts...)

	m.mu.Lock()
	m.samples[sample.Device] = sample
	m.statuses[sample.Device] = telemetry.DeviceStatus{
		Device:      sample.Device,
		State:       telemetry.StateConnected,
		LastAttempt: sample.FetchedAt,
		LastSuccess: sample.FetchedAt,
	}
	m.mu.Unlock()

	m.notifySubscribers(sample)
}

// RecordFailure marks an absent poll. LastSuccess is carried over from the
// previous status.
func (m *MemoryStore) RecordFailure(device string, at time.Time, err error) telemetry.DeviceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := m.statuses[device]
	status.Device = device
	status.State = telemetry.StateError
	status.LastAttempt = at
	status.ConsecutiveFailures++
	status.LastError = ""
	if err != nil {
		status.LastError = err.Error()
	}
	m.statuses[device] = status
	return status
}

// Status returns the connection status recorded for device.
func (m *MemoryStore) Status(device string) (telemetry.DeviceStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.statuses[device]
	return s, ok
}

// Latest returns the stored sample for device.
func (m *MemoryStore) Latest(device string) (telemetry.Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.samples[device]
	return s, ok
}

// GetAll returns a snapshot of all stored samples sorted by device name.
func (m *MemoryStore) GetAll() []telemetry.Sample {
	m.mu.RLock()
	samples := make([]telemetry.Sample, 0, len(m.samples))
	for _, s := range m.samples {
		samples = append(samples, s)
	}
	m.mu.RUnlock()

	sort.Slice(samples, func(i, j int) bool { return samples[i].Device < samples[j].Device })
	return samples
}

// Subscribe creates a new subscription with a buffered channel.
func (m *MemoryStore) Subscribe() <-chan telemetry.Sample {
	ch := make(chan telemetry.Sample, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan telemetry.Sample) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the sample to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(sample telemetry.Sample) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- sample:
		default:
			// subscriber is slow, drop the message
		}
	}
}
