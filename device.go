package sensorbridge

import (
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode"
)

const (
	// DefaultDeviceURL is the address the module serves from in access-point mode.
	DefaultDeviceURL = "http://192.168.4.1/"

	defaultDeviceTimeout  = 5 * time.Second
	defaultDeviceInterval = 1 * time.Second
)

// Device describes one upstream sensor module or relay.
//
// Device is immutable after creation via [NewDevice]. All fields are private
// with getter methods that return copies of mutable data (maps), so several
// fetchers and pollers can share a Device safely.
//
// Devices are configured using the functional options pattern with
// [DeviceOption] functions such as [WithTimeout], [WithFormat],
// [WithInterval], [WithHeaders], [WithLabels] and [WithExtractor].
type Device struct {
	name      string
	url       string
	format    Format
	timeout   time.Duration
	interval  time.Duration
	headers   map[string]string
	labels    map[string]string
	extractor *Extractor
}

// Name returns the device's identifier used in logs, metrics and API paths.
func (d Device) Name() string {
	return d.name
}

// URL returns the address that is fetched.
func (d Device) URL() string {
	return d.url
}

// Format returns how response bodies are decoded.
func (d Device) Format() Format {
	return d.format
}

// Timeout returns the per-request timeout. Defaults to 5 seconds.
func (d Device) Timeout() time.Duration {
	return d.timeout
}

// Interval returns the pause between polls. Defaults to 1 second.
func (d Device) Interval() time.Duration {
	return d.interval
}

// Headers returns a copy of the extra request headers. Returns nil if none are set.
func (d Device) Headers() map[string]string {
	return copyMap(d.headers)
}

// Labels returns a copy of the device's metadata labels. Returns nil if none are set.
func (d Device) Labels() map[string]string {
	return copyMap(d.labels)
}

// Extractor returns the extractor used for [FormatText] bodies. Returns nil
// if none was set, in which case the default rules apply.
func (d Device) Extractor() *Extractor {
	return d.extractor
}

// NewDevice creates a [Device] with the given name, URL, and options.
//
// The rawURL parameter must be an absolute http:// or https:// URL. For the
// text format this is normally the device root ("/"); for JSON it is the
// "/data" route of the device or relay.
//
// Returns an error if the name is invalid (see [ValidateDeviceName]), the URL
// is invalid, or an option fails.
//
// Example:
//
//	dev, err := sensorbridge.NewDevice("esp8266", "http://192.168.4.1/",
//	    sensorbridge.WithTimeout(3*time.Second),
//	)
func NewDevice(name, rawURL string, opts ...DeviceOption) (Device, error) {
	if err := ValidateDeviceName(name); err != nil {
		return Device{}, err
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Device{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Device{}, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsedURL.Host == "" {
		return Device{}, errors.New("URL must have a host")
	}

	cfg := &deviceConfig{
		format:   FormatText,
		timeout:  defaultDeviceTimeout,
		interval: defaultDeviceInterval,
		headers:  make(map[string]string),
		labels:   make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Device{}, err
		}
	}

	return Device{
		name:      name,
		url:       rawURL,
		format:    cfg.format,
		timeout:   cfg.timeout,
		interval:  cfg.interval,
		headers:   cfg.headers,
		labels:    cfg.labels,
		extractor: cfg.extractor,
	}, nil
}

// copyMap returns a shallow copy of the map, or nil for an empty map.
func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// ValidateDeviceName checks that name can be used as an API path segment and
// inside an MQTT topic: it must be non-empty and free of '/', '+', '#',
// whitespace and control characters.
func ValidateDeviceName(name string) error {
	if name == "" {
		return errors.New("device name cannot be empty")
	}
	for _, r := range name {
		switch {
		case r == '/' || r == '+' || r == '#':
			return fmt.Errorf("device name %q cannot contain %q", name, r)
		case unicode.IsSpace(r) || unicode.IsControl(r):
			return fmt.Errorf("device name %q cannot contain whitespace or control characters", name)
		}
	}
	return nil
}
