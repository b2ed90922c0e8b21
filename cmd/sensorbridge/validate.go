package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sensorbridge/config"
)

// validateCmd validates a config file without starting the bridge.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a sensorbridge configuration file without starting the bridge.

This command parses the YAML, expands environment variables, and validates
all fields. Sinks are not contacted. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  sensorbridge validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var sinks []string
	if cfg.Sinks.Console {
		sinks = append(sinks, "console")
	}
	if cfg.Sinks.Log {
		sinks = append(sinks, "log")
	}
	if cfg.Sinks.MQTT != nil {
		sinks = append(sinks, "mqtt")
	}
	if cfg.Sinks.Redis != nil {
		sinks = append(sinks, "redis")
	}

	thresholds := config.BuildThresholds(cfg)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:       %d\n", cfg.Port)
	fmt.Fprintf(out, "  Devices:    %d\n", len(cfg.Devices))
	for _, d := range cfg.Devices {
		fmt.Fprintf(out, "    - %s %s\n", d.Name, d.URL)
	}
	fmt.Fprintf(out, "  Thresholds: posture %g, pitch %g, roll %g\n",
		thresholds.PostureAngle, thresholds.Pitch, thresholds.Roll)
	fmt.Fprintf(out, "  Sinks:      %d %v\n", len(sinks), sinks)

	return nil
}
