package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sensorbridge"
)

// addDeviceFlags registers the flags describing a single ad-hoc device.
func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", sensorbridge.DefaultDeviceURL, "device URL")
	cmd.Flags().String("format", string(sensorbridge.FormatText), "response format: text or json")
	cmd.Flags().Duration("timeout", 5*time.Second, "request timeout")
	cmd.Flags().String("log-level", "warn", "log level: debug, info, warn or error")
}

// deviceFromFlags builds the device named "cli" from the device flags.
func deviceFromFlags(cmd *cobra.Command, extra ...sensorbridge.DeviceOption) (sensorbridge.Device, error) {
	rawURL, _ := cmd.Flags().GetString("url")
	format, _ := cmd.Flags().GetString("format")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	opts := []sensorbridge.DeviceOption{
		sensorbridge.WithFormat(sensorbridge.Format(format)),
		sensorbridge.WithTimeout(timeout),
	}
	return sensorbridge.NewDevice("cli", rawURL, append(opts, extra...)...)
}
