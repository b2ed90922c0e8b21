package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

// Console writes one human-readable line per sample.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Console writing to w, or to stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

// Publish prints the sample and any alerts it carries.
func (c *Console) Publish(_ context.Context, s telemetry.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "%s device=%s %s\n", s.FetchedAt.Format(time.RFC3339), s.Device, s.Reading); err != nil {
		return err
	}
	for _, a := range s.Alerts {
		if _, err := fmt.Fprintf(c.w, "  ALERT %s: %s\n", a.Kind, a.Message); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) Close() error { return nil }
