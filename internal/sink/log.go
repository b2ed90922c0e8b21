package sink

import (
	"context"
	"log/slog"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

// Log emits one structured record per sample.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLog returns a Log sink writing at level. A nil logger falls back to
// [slog.Default].
func NewLog(logger *slog.Logger, level slog.Level) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger, level: level}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Publish(ctx context.Context, s telemetry.Sample) error {
	r := s.Reading
	l.logger.Log(ctx, l.level, "reading",
		"device", s.Device,
		"latency_ms", s.LatencyMs,
		slog.Group("accelerometer", "x", r.Accelerometer.X, "y", r.Accelerometer.Y, "z", r.Accelerometer.Z),
		slog.Group("gyroscope", "x", r.Gyroscope.X, "y", r.Gyroscope.Y, "z", r.Gyroscope.Z),
		"temperature", r.Temperature,
		"posture_angle", r.PostureAngle,
		"pitch_angle", r.PitchAngle,
		"roll_angle", r.RollAngle,
		"alerts", len(s.Alerts),
	)
	return nil
}

func (l *Log) Close() error { return nil }
