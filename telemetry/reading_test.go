package telemetry

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestReading_JSONShape(t *testing.T) {
	r := Reading{
		Accelerometer: Vector{X: 1, Y: 2, Z: 3},
		Temperature:   25.5,
		PostureAngle:  10,
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	want := `{"accelerometer":{"x":1,"y":2,"z":3},"gyroscope":{"x":0,"y":0,"z":0},` +
		`"temperature":25.5,"posture_angle":10,"pitch_angle":0,"roll_angle":0}`
	if string(data) != want {
		t.Errorf("json = %s\nwant  %s", data, want)
	}
}

func TestReading_ZeroStillHasEveryKey(t *testing.T) {
	data, err := json.Marshal(Reading{})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	for _, key := range []string{"accelerometer", "gyroscope", "temperature", "posture_angle", "pitch_angle", "roll_angle"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("zero reading JSON missing key %q: %s", key, data)
		}
	}
}

func TestReading_IsZero(t *testing.T) {
	if !(Reading{}).IsZero() {
		t.Error("Reading{}.IsZero() = false, want true")
	}
	if (Reading{Gyroscope: Vector{Z: -0.5}}).IsZero() {
		t.Error("IsZero() = true for reading with gyroscope value")
	}
}

func TestReading_String(t *testing.T) {
	r := Reading{Accelerometer: Vector{X: 0.12, Y: -0.03, Z: 9.81}, Temperature: 23.5}
	s := r.String()

	for _, part := range []string{"X=0.12", "Y=-0.03", "Z=9.81", "temp=23.50"} {
		if !strings.Contains(s, part) {
			t.Errorf("String() = %q, missing %q", s, part)
		}
	}
}

func TestSample_OmitsEmptyAlerts(t *testing.T) {
	s := Sample{Device: "esp", FetchedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "alerts") {
		t.Errorf("sample without alerts should omit the key: %s", data)
	}

	s.Alerts = []Alert{{Kind: AlertPitch, Value: 30, Threshold: 20}}
	data, _ = json.Marshal(s)
	if !strings.Contains(string(data), `"kind":"pitch"`) {
		t.Errorf("sample alerts not encoded: %s", data)
	}
}
