// Package mockdevice simulates the posture sensor module's status page for
// demos and local testing.
package mockdevice

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/sensorbridge"
)

// Device produces a slowly drifting posture. The user leans forward past the
// default threshold for part of every cycle so alerts fire regularly.
type Device struct {
	mu      sync.Mutex
	started time.Time
	cycle   time.Duration
	rng     *rand.Rand
	now     func() time.Time
}

// New returns a Device whose posture completes one lean cycle per cycle.
// A non-positive cycle defaults to one minute.
func New(cycle time.Duration) *Device {
	if cycle <= 0 {
		cycle = time.Minute
	}
	return &Device{
		started: time.Now(),
		cycle:   cycle,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// Reading returns the simulated reading at the current instant.
func (d *Device) Reading() sensorbridge.Reading {
	d.mu.Lock()
	defer d.mu.Unlock()

	phase := 2 * math.Pi * float64(d.now().Sub(d.started)%d.cycle) / float64(d.cycle)
	posture := 10 + 10*math.Sin(phase) + d.jitter(0.5)
	pitch := posture*0.8 + d.jitter(0.3)
	roll := 3*math.Cos(phase) + d.jitter(0.3)
	rad := posture * math.Pi / 180

	return sensorbridge.Reading{
		Accelerometer: sensorbridge.Vector{
			X: round(9.81*math.Sin(rad) + d.jitter(0.02)),
			Y: round(d.jitter(0.05)),
			Z: round(9.81*math.Cos(rad) + d.jitter(0.02)),
		},
		Gyroscope: sensorbridge.Vector{
			X: round(d.jitter(0.02)),
			Y: round(d.jitter(0.02)),
			Z: round(d.jitter(0.02)),
		},
		Temperature:  round(24 + d.jitter(0.3)),
		PostureAngle: round(posture),
		PitchAngle:   round(pitch),
		RollAngle:    round(roll),
	}
}

func (d *Device) jitter(scale float64) float64 {
	return (d.rng.Float64()*2 - 1) * scale
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

// StatusPage renders r the way the stock firmware does.
func StatusPage(r sensorbridge.Reading) string {
	return fmt.Sprintf(`ESP8266 Posture Sensor
Accelerometer (m/s²): X=%.2f, Y=%.2f, Z=%.2f
Gyroscope (rad/s): X=%.2f, Y=%.2f, Z=%.2f
Temperature (°C): %.2f
Posture Angle (°) [Z-axis mapping]: %.2f
Pitch Angle (°): %.2f
Roll Angle (°): %.2f
`,
		r.Accelerometer.X, r.Accelerometer.Y, r.Accelerometer.Z,
		r.Gyroscope.X, r.Gyroscope.Y, r.Gyroscope.Z,
		r.Temperature, r.PostureAngle, r.PitchAngle, r.RollAngle)
}

// Handler serves the text status page at "/" and the JSON reading at
// "/api/sensor-data", with a little latency variance.
func (d *Device) Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		d.delay()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := fmt.Fprint(w, StatusPage(d.Reading())); err != nil {
			logger.Error("failed to write response", "error", err)
		}
	})
	mux.HandleFunc("GET /api/sensor-data", func(w http.ResponseWriter, r *http.Request) {
		d.delay()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(d.Reading()); err != nil {
			logger.Error("failed to write response", "error", err)
		}
	})
	return mux
}

func (d *Device) delay() {
	d.mu.Lock()
	ms := 20 + d.rng.Intn(80)
	d.mu.Unlock()
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
