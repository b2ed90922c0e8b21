package sensorbridge

import (
	"errors"
	"time"
)

// deviceConfig holds mutable state during device construction.
type deviceConfig struct {
	format    Format
	timeout   time.Duration
	interval  time.Duration
	headers   map[string]string
	labels    map[string]string
	extractor *Extractor
}

// DeviceOption configures a [Device] during construction.
//
// Options return an error if validation fails.
type DeviceOption func(*deviceConfig) error

// WithFormat selects how response bodies are decoded.
//
// Returns an error for an unknown format.
func WithFormat(f Format) DeviceOption {
	return func(cfg *deviceConfig) error {
		parsed, err := ParseFormat(string(f))
		if err != nil {
			return err
		}
		cfg.format = parsed
		return nil
	}
}

// WithTimeout sets the HTTP request timeout. The timeout bounds how long a
// fetch can block when the device is unreachable or hung.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) DeviceOption {
	return func(cfg *deviceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithInterval sets the fixed pause between polls of this device.
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) DeviceOption {
	return func(cfg *deviceConfig) error {
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithHeaders adds request headers as key-value pairs.
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) DeviceOption {
	return func(cfg *deviceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithLabels attaches metadata labels (location, wearer, ...) as key-value pairs.
//
// Returns an error if an odd number of arguments is provided.
func WithLabels(keyValues ...string) DeviceOption {
	return func(cfg *deviceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithExtractor sets the extractor for [FormatText] bodies, typically one
// built from [RulesWithLabels] for firmware that prints different labels.
//
// Returns an error if e is nil.
func WithExtractor(e *Extractor) DeviceOption {
	return func(cfg *deviceConfig) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		cfg.extractor = e
		return nil
	}
}
