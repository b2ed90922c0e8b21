package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sensorbridge"
	"github.com/jpalmerr/sensorbridge/config"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one reading and print it as JSON",
	Long: `Fetch a single reading from a device and print the sample as JSON,
including any posture alerts.

Exit codes:
  0 - A reading was obtained
  1 - The device was unreachable or returned an unusable response

Example:
  sensorbridge fetch
  sensorbridge fetch --url http://relay.local:5000/api/sensor-data --format json`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	addDeviceFlags(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	device, err := deviceFromFlags(cmd)
	if err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger := newLogger(os.Stderr, config.LogConfig{Level: level, Format: "text"})

	fetcher := sensorbridge.NewFetcher(device, logger)
	defer fetcher.Close()

	result := fetcher.FetchResult(cmd.Context())
	if !result.OK() {
		return fmt.Errorf("no reading from %s: %w", device.URL(), result.Err)
	}

	sample := sensorbridge.Sample{
		Device:    device.Name(),
		Reading:   result.Reading,
		FetchedAt: result.FetchedAt,
		LatencyMs: result.Latency.Milliseconds(),
		Alerts:    sensorbridge.DefaultThresholds.Evaluate(result.Reading),
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(sample)
}
