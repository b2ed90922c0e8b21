package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sensorbridge"
	"github.com/jpalmerr/sensorbridge/config"
	"github.com/jpalmerr/sensorbridge/internal/sink"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll one device and print each sample",
	Long: `Poll a single device on a fixed interval and print one line per
sample, followed by any posture alerts. No HTTP server is started.

The command runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  sensorbridge poll
  sensorbridge poll --url http://10.0.0.7/ --interval 500ms`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)

	addDeviceFlags(pollCmd)
	pollCmd.Flags().Duration("interval", time.Second, "pause between polls")
}

func runPoll(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	device, err := deviceFromFlags(cmd, sensorbridge.WithInterval(interval))
	if err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger := newLogger(os.Stderr, config.LogConfig{Level: level, Format: "text"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return pollDevice(ctx, cmd, device, logger)
}

func pollDevice(ctx context.Context, cmd *cobra.Command, device sensorbridge.Device, logger *slog.Logger) error {
	console := sink.NewConsole(cmd.OutOrStdout())
	fetcher := sensorbridge.NewFetcher(device, logger)
	defer fetcher.Close()

	poller := sensorbridge.NewPoller(fetcher, logger, func(s sensorbridge.Sample) {
		s.Alerts = sensorbridge.DefaultThresholds.Evaluate(s.Reading)
		if err := console.Publish(ctx, s); err != nil {
			logger.Warn("print failed", "error", err)
		}
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "polling %s every %s\n", device.URL(), poller.Interval())
	return poller.Run(ctx)
}
