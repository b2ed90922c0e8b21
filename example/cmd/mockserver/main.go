// Standalone simulated sensor module for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/sensorbridge poll --url http://localhost:9999/
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/sensorbridge/example/mockdevice"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	cycle := flag.Duration("cycle", time.Minute, "length of one lean cycle")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fmt.Printf("Mock sensor module starting on %s\n", *addr)
	fmt.Println("  /                 firmware status page (text)")
	fmt.Println("  /api/sensor-data  reading as JSON")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := http.ListenAndServe(*addr, mockdevice.New(*cycle).Handler(logger)); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
