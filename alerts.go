package sensorbridge

import (
	"fmt"
	"math"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

// Thresholds are the angle limits, in degrees, above which a reading raises
// an [Alert]. A zero threshold disables that check.
type Thresholds struct {
	PostureAngle float64
	Pitch        float64
	Roll         float64
}

// DefaultThresholds match the posture monitor's stock settings.
var DefaultThresholds = Thresholds{
	PostureAngle: 15,
	Pitch:        20,
	Roll:         20,
}

// Evaluate returns the alerts raised by r, in posture, pitch, roll order.
//
// Posture angle is compared signed (leaning forward is positive); pitch and
// roll are compared by magnitude. Returns nil when nothing is breached.
func (t Thresholds) Evaluate(r Reading) []Alert {
	var alerts []Alert

	if t.PostureAngle > 0 && r.PostureAngle > t.PostureAngle {
		alerts = append(alerts, Alert{
			Kind:      telemetry.AlertPosture,
			Message:   fmt.Sprintf("poor posture detected: angle %.2f° exceeds %.2f°", r.PostureAngle, t.PostureAngle),
			Value:     r.PostureAngle,
			Threshold: t.PostureAngle,
		})
	}

	if t.Pitch > 0 && math.Abs(r.PitchAngle) > t.Pitch {
		alerts = append(alerts, Alert{
			Kind:      telemetry.AlertPitch,
			Message:   fmt.Sprintf("excessive forward/backward tilt: %.2f°", r.PitchAngle),
			Value:     r.PitchAngle,
			Threshold: t.Pitch,
		})
	}

	if t.Roll > 0 && math.Abs(r.RollAngle) > t.Roll {
		alerts = append(alerts, Alert{
			Kind:      telemetry.AlertRoll,
			Message:   fmt.Sprintf("excessive side tilt: %.2f°", r.RollAngle),
			Value:     r.RollAngle,
			Threshold: t.Roll,
		})
	}

	return alerts
}

// validate rejects negative thresholds.
func (t Thresholds) validate() error {
	if t.PostureAngle < 0 || t.Pitch < 0 || t.Roll < 0 {
		return fmt.Errorf("thresholds cannot be negative: %+v", t)
	}
	return nil
}
