package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sensorbridge"
	"github.com/jpalmerr/sensorbridge/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a logger on w honouring the configured level and format.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll devices and serve the API",
	Long: `Start sensorbridge.

The server will:
  - Load configuration from the specified YAML file, or use a single text
    device at http://192.168.4.1/ when no file is given
  - Poll every configured device and evaluate posture thresholds
  - Publish samples to the configured sinks
  - Serve the JSON API, live streams and dashboard on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  sensorbridge serve
  sensorbridge serve -c /etc/sensorbridge/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (default: built-in single device)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return config.Default(), nil
	}
	return config.Load(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	logger.Info("config loaded",
		"devices", len(cfg.Devices),
		"port", cfg.Port,
	)

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := config.BuildOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build bridge: %w", err)
	}

	bridge, err := sensorbridge.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- bridge.Start(ctx)
	}()

	return waitForShutdown(ctx, errChan, logger)
}

// waitForShutdown blocks until the run finishes, allowing shutdownTimeout
// for a graceful stop once ctx is cancelled.
func waitForShutdown(ctx context.Context, errChan <-chan error, logger *slog.Logger) error {
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
