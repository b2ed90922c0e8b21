// Package main is the entry point for the sensorbridge CLI.
//
// sensorbridge can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	sensorbridge serve [-c config.yaml]     # Poll devices and serve the API
//	sensorbridge poll --url http://...      # Print samples from one device
//	sensorbridge fetch --url http://...     # Fetch once and print JSON
//	sensorbridge validate -c config.yaml    # Validate configuration
//	sensorbridge version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "sensorbridge",
	Short: "Bridge a posture sensor module to HTTP and message brokers",
	Long: `sensorbridge polls posture sensor modules over HTTP, extracts their
telemetry and republishes it as JSON, Server-Sent Events, WebSocket
messages, MQTT or Redis Pub/Sub.

Quick start:
  1. Join the module's access point (it serves http://192.168.4.1/)
  2. Run: sensorbridge serve
  3. Open http://localhost:5000 in your browser

Example config:
  port: 5000
  devices:
    - name: desk
      url: http://192.168.4.1/
      interval: 1s
  sinks:
    mqtt:
      broker: tcp://localhost:1883`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this sensorbridge binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sensorbridge %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
