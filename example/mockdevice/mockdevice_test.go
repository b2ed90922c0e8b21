package mockdevice

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jpalmerr/sensorbridge"
)

func TestStatusPage_RoundTripsThroughExtractor(t *testing.T) {
	want := sensorbridge.Reading{
		Accelerometer: sensorbridge.Vector{X: 0.12, Y: -0.05, Z: 9.81},
		Gyroscope:     sensorbridge.Vector{X: 0.01, Y: 0.02, Z: -0.01},
		Temperature:   24.5,
		PostureAngle:  -12.3,
		PitchAngle:    4.2,
		RollAngle:     1.7,
	}

	extractor, err := sensorbridge.NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	got, results := extractor.ExtractFields(StatusPage(want))
	for _, r := range results {
		if !r.OK() {
			t.Errorf("field %s failed: %v", r.Field, r.Err)
		}
	}
	if got != want {
		t.Errorf("extracted %+v, want %+v", got, want)
	}
}

func TestReading_FollowsCycle(t *testing.T) {
	d := New(time.Minute)
	base := d.started

	tests := []struct {
		name     string
		offset   time.Duration
		min, max float64
	}{
		{"start", 0, 8, 12},
		{"quarter", 15 * time.Second, 18, 22},
		{"three quarters", 45 * time.Second, -2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d.now = func() time.Time { return base.Add(tt.offset) }
			if got := d.Reading().PostureAngle; got < tt.min || got > tt.max {
				t.Errorf("PostureAngle = %v, want within [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(New(time.Minute).Handler(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sensor-data")
	if err != nil {
		t.Fatalf("GET /api/sensor-data: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var r sensorbridge.Reading
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Temperature < 23 || r.Temperature > 25 {
		t.Errorf("Temperature = %v, want about 24", r.Temperature)
	}

	page, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer page.Body.Close()
	body, _ := io.ReadAll(page.Body)

	if got := sensorbridge.Extract(string(body)); got.Temperature < 23 || got.Temperature > 25 {
		t.Errorf("extracted Temperature = %v from %q", got.Temperature, body)
	}

	missing, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", missing.StatusCode)
	}
}
