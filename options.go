package sensorbridge

import (
	"errors"
	"fmt"
	"log/slog"
)

// bridgeConfig holds mutable state during Bridge construction.
type bridgeConfig struct {
	title      string
	devices    []Device
	port       int
	thresholds Thresholds
	sinks      []Sink
	callbacks  []Observer
	logger     *slog.Logger
}

// validate returns optErr, the first option failure, or the first problem
// with the assembled configuration.
func (cfg *bridgeConfig) validate(optErr error) error {
	if optErr != nil {
		return optErr
	}
	if len(cfg.devices) == 0 {
		return errors.New("at least one device is required")
	}

	// names key the store, metrics and API paths
	seen := make(map[string]bool, len(cfg.devices))
	for _, d := range cfg.devices {
		if seen[d.name] {
			return fmt.Errorf("duplicate device name: %q", d.name)
		}
		seen[d.name] = true
	}
	return nil
}

// Option is a function that configures a [Bridge] during construction.
//
// Options return an error if validation fails.
//
// Built-in options: [WithDevice], [WithDevices], [WithPort], [WithLogger],
// [WithSink], [WithReadingCallback], [WithThresholds], [WithTitle].
type Option func(*bridgeConfig) error

// WithDevice adds a single [Device] to poll.
//
// Can be called multiple times. The first device configured is the primary
// device served at /api/sensor-data.
func WithDevice(d Device) Option {
	return func(cfg *bridgeConfig) error {
		cfg.devices = append(cfg.devices, d)
		return nil
	}
}

// WithDevices adds multiple [Device] values. Equivalent to calling
// [WithDevice] for each.
func WithDevices(devices ...Device) Option {
	return func(cfg *bridgeConfig) error {
		cfg.devices = append(cfg.devices, devices...)
		return nil
	}
}

// WithPort sets the HTTP port for the API server. Defaults to 5000.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *bridgeConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *bridgeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSink adds a [Sink] that receives every sample. Sinks are published to
// in registration order and closed when [Bridge.Start] returns.
//
// Returns an error if the sink is nil.
func WithSink(s Sink) Option {
	return func(cfg *bridgeConfig) error {
		if s == nil {
			return errors.New("sink cannot be nil")
		}
		cfg.sinks = append(cfg.sinks, s)
		return nil
	}
}

// WithReadingCallback registers a function called with every sample, after
// it has been stored and published.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the device's poller
// goroutine and delay its next poll. Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithReadingCallback(cb func(Sample)) Option {
	return func(cfg *bridgeConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// WithThresholds replaces [DefaultThresholds]. A zero field disables that
// check.
//
// Returns an error if any threshold is negative.
func WithThresholds(t Thresholds) Option {
	return func(cfg *bridgeConfig) error {
		if err := t.validate(); err != nil {
			return err
		}
		cfg.thresholds = t
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "Posture Monitor".
func WithTitle(title string) Option {
	return func(cfg *bridgeConfig) error {
		cfg.title = title
		return nil
	}
}
