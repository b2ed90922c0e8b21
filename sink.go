package sensorbridge

import "context"

// Sink receives every Sample a [Bridge] obtains, after alerts have been
// evaluated.
//
// Publish is called from the device's poller goroutine with a bounded
// context; implementations must be safe for concurrent use because several
// devices publish to the same sink. A Publish error is logged and counted,
// never retried.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Publish delivers one sample.
	Publish(ctx context.Context, s Sample) error

	// Close releases the sink's connections. Called once on shutdown.
	Close() error
}
