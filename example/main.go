package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/sensorbridge"
	"github.com/jpalmerr/sensorbridge/example/mockdevice"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// start a simulated module (see mockdevice)
	ln, err := net.Listen("tcp", "127.0.0.1:9999")
	if err != nil {
		logger.Error("failed to start mock device", "error", err)
		os.Exit(1)
	}
	go func() {
		_ = http.Serve(ln, mockdevice.New(90*time.Second).Handler(logger))
	}()

	// the same module read twice: once as the firmware text page, once as JSON
	desk, err := sensorbridge.NewDevice("desk", "http://127.0.0.1:9999/",
		sensorbridge.WithLabels("room", "office"),
	)
	if err != nil {
		logger.Error("failed to create device", "error", err)
		os.Exit(1)
	}

	relay, err := sensorbridge.NewDevice("relay", "http://127.0.0.1:9999/api/sensor-data",
		sensorbridge.WithFormat(sensorbridge.FormatJSON),
		sensorbridge.WithInterval(5*time.Second),
	)
	if err != nil {
		logger.Error("failed to create device", "error", err)
		os.Exit(1)
	}

	bridge, err := sensorbridge.New(
		sensorbridge.WithDevices(desk, relay),
		sensorbridge.WithPort(5000),
		sensorbridge.WithLogger(logger),
		sensorbridge.WithReadingCallback(func(s sensorbridge.Sample) {
			for _, a := range s.Alerts {
				fmt.Printf("%s  %s: %s\n", s.FetchedAt.Format(time.Kitchen), s.Device, a.Message)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  sensorbridge demo")
	fmt.Println()
	fmt.Println("  Dashboard:  http://localhost:5000")
	fmt.Println("  API:        http://localhost:5000/api/sensor-data")
	fmt.Println("  Devices:    desk (text, 1s), relay (json, 5s)")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bridge.Start(ctx); err != nil {
		logger.Error("sensorbridge error", "error", err)
		os.Exit(1)
	}
}
