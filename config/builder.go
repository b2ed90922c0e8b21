package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/jpalmerr/sensorbridge"
	"github.com/jpalmerr/sensorbridge/internal/sink"
)

// BuildDevices converts parsed configuration into SDK Device values, in
// configuration order.
func BuildDevices(cfg *Config) ([]sensorbridge.Device, error) {
	devices := make([]sensorbridge.Device, 0, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		d, err := buildDevice(dc)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", dc.Name, err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// buildDevice converts a single DeviceConfig to an SDK Device.
func buildDevice(dc DeviceConfig) (sensorbridge.Device, error) {
	var opts []sensorbridge.DeviceOption

	format, err := sensorbridge.ParseFormat(dc.Format)
	if err != nil {
		return sensorbridge.Device{}, err
	}
	opts = append(opts, sensorbridge.WithFormat(format))

	if dc.Timeout != 0 {
		opts = append(opts, sensorbridge.WithTimeout(dc.Timeout.Duration()))
	}

	if dc.Interval != 0 {
		opts = append(opts, sensorbridge.WithInterval(dc.Interval.Duration()))
	}

	if len(dc.Headers) > 0 {
		opts = append(opts, sensorbridge.WithHeaders(mapToKeyValuePairs(dc.Headers)...))
	}

	if len(dc.Labels) > 0 {
		opts = append(opts, sensorbridge.WithLabels(mapToKeyValuePairs(dc.Labels)...))
	}

	if len(dc.Fields) > 0 {
		overrides := make(map[sensorbridge.Field]string, len(dc.Fields))
		for name, label := range dc.Fields {
			overrides[sensorbridge.Field(name)] = label
		}
		rules, err := sensorbridge.RulesWithLabels(overrides)
		if err != nil {
			return sensorbridge.Device{}, err
		}
		extractor, err := sensorbridge.NewExtractor(nil, rules...)
		if err != nil {
			return sensorbridge.Device{}, err
		}
		opts = append(opts, sensorbridge.WithExtractor(extractor))
	}

	return sensorbridge.NewDevice(dc.Name, dc.URL, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// BuildThresholds applies configured overrides to [sensorbridge.DefaultThresholds].
func BuildThresholds(cfg *Config) sensorbridge.Thresholds {
	t := sensorbridge.DefaultThresholds
	if v := cfg.Thresholds.PostureAngle; v != nil {
		t.PostureAngle = *v
	}
	if v := cfg.Thresholds.Pitch; v != nil {
		t.Pitch = *v
	}
	if v := cfg.Thresholds.Roll; v != nil {
		t.Roll = *v
	}
	return t
}

// BuildSinks creates the enabled sinks. Network sinks connect eagerly so a
// wrong broker or Redis address fails at startup. On error, sinks created so
// far are closed.
func BuildSinks(ctx context.Context, cfg *Config, logger *slog.Logger) ([]sensorbridge.Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []sensorbridge.Sink
	fail := func(err error) ([]sensorbridge.Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	if cfg.Sinks.Console {
		sinks = append(sinks, sink.NewConsole(os.Stdout))
	}

	if cfg.Sinks.Log {
		sinks = append(sinks, sink.NewLog(logger, slog.LevelInfo))
	}

	if m := cfg.Sinks.MQTT; m != nil {
		s, err := sink.NewMQTT(sink.MQTTConfig{
			Broker:   m.Broker,
			ClientID: m.ClientID,
			Topic:    m.Topic,
			Username: m.Username,
			Password: m.Password,
			QoS:      byte(m.QoS),
			Retained: m.Retained,
		})
		if err != nil {
			return fail(fmt.Errorf("mqtt sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	if r := cfg.Sinks.Redis; r != nil {
		s, err := sink.NewRedis(ctx, sink.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Channel:  r.Channel,
		})
		if err != nil {
			return fail(fmt.Errorf("redis sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	return sinks, nil
}

// BuildOptions assembles the Bridge options for cfg. The sinks it connects
// are handed to [sensorbridge.New], which closes them if it fails.
func BuildOptions(ctx context.Context, cfg *Config, logger *slog.Logger) ([]sensorbridge.Option, error) {
	devices, err := BuildDevices(cfg)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, errors.New("no devices configured")
	}

	sinks, err := BuildSinks(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []sensorbridge.Option{
		sensorbridge.WithDevices(devices...),
		sensorbridge.WithPort(cfg.Port),
		sensorbridge.WithThresholds(BuildThresholds(cfg)),
	}
	if logger != nil {
		opts = append(opts, sensorbridge.WithLogger(logger))
	}
	if cfg.Title != "" {
		opts = append(opts, sensorbridge.WithTitle(cfg.Title))
	}
	for _, s := range sinks {
		opts = append(opts, sensorbridge.WithSink(s))
	}
	return opts, nil
}
