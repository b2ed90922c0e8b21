package sensorbridge

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/sensorbridge/dashboard"
	"github.com/jpalmerr/sensorbridge/internal/metrics"
	"github.com/jpalmerr/sensorbridge/internal/server"
	"github.com/jpalmerr/sensorbridge/internal/store"
)

const (
	defaultPort = 5000

	// publishTimeout bounds a single Sink.Publish call.
	publishTimeout = 5 * time.Second
)

// Bridge is the main orchestrator: it polls every configured device, keeps
// the latest sample per device, fans samples out to sinks and serves the
// HTTP API and dashboard.
//
// Bridge is created using [New] with functional options and started with
// [Bridge.Start]. The typical lifecycle is:
//
//	b, err := sensorbridge.New(sensorbridge.WithDevice(dev))
//	if err != nil {
//	    slog.Error("failed to create bridge", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
type Bridge struct {
	title      string
	devices    []Device
	port       int
	thresholds Thresholds
	sinks      []Sink
	callbacks  []Observer
	logger     *slog.Logger
}

// New creates a new [Bridge] with the given options.
//
// At least one device must be configured via [WithDevice] or [WithDevices].
// Other options have defaults:
//   - Port: 5000
//   - Thresholds: [DefaultThresholds]
//   - Sinks: none
//
// Returns an error if no devices are configured, device names collide, or
// any option is invalid. The Bridge owns the sinks passed with [WithSink]:
// when New fails they are closed, wherever the failing option sits.
func New(opts ...Option) (*Bridge, error) {
	cfg := &bridgeConfig{
		port:       defaultPort,
		thresholds: DefaultThresholds,
	}

	// apply every option so that all sinks are known before failing
	var optErr error
	for _, opt := range opts {
		if err := opt(cfg); err != nil && optErr == nil {
			optErr = err
		}
	}

	if err := cfg.validate(optErr); err != nil {
		closeSinks(cfg.sinks, cfg.logger)
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		title:      cfg.title,
		devices:    cfg.devices,
		port:       cfg.port,
		thresholds: cfg.thresholds,
		sinks:      cfg.sinks,
		callbacks:  cfg.callbacks,
		logger:     logger,
	}, nil
}

// Start begins polling devices and serving the API.
//
// Start is a blocking call that runs until ctx is cancelled. During execution:
//
//   - Each device is polled immediately, then every device interval, on its own goroutine
//   - Every sample has thresholds evaluated, is stored, published to sinks and passed to callbacks
//   - The HTTP server listens on the configured port
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start; no device is polled in that case.
func (b *Bridge) Start(ctx context.Context) error {
	b.logger.Info("sensorbridge starting", "device_count", len(b.devices), "sink_count", len(b.sinks))
	b.logger.Info("api available", "url", fmt.Sprintf("http://localhost:%d/api/sensor-data", b.port))

	if ctx.Err() != nil {
		b.closeSinks()
		return nil
	}

	m := metrics.New()
	sampleStore := store.NewMemoryStore()

	fetchers := make([]*Fetcher, len(b.devices))
	serverDevices := make([]server.Device, len(b.devices))
	for i, d := range b.devices {
		f := NewFetcher(d, b.logger)
		f.recorder = m
		fetchers[i] = f
		serverDevices[i] = server.Device{
			Name:   d.name,
			URL:    d.url,
			Format: string(d.format),
			Labels: d.Labels(),
			Fetch:  f.Fetch,
		}
	}
	defer func() {
		for _, f := range fetchers {
			f.Close()
		}
	}()

	httpServer := server.NewServer(server.Options{
		Store:   sampleStore,
		Devices: serverDevices,
		Port:    b.port,
		Assets:  dashboard.Assets,
		Title:   b.title,
		Metrics: m,
		Logger:  b.logger,
	})
	if err := httpServer.Start(ctx); err != nil {
		b.closeSinks()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	var wg sync.WaitGroup
	for _, f := range fetchers {
		p := NewPoller(f, b.logger, b.observer(ctx, sampleStore, m))
		p.OnFailure(b.failureObserver(sampleStore, m))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Run(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	b.closeSinks()
	b.logger.Info("sensorbridge stopped")
	return nil
}

// observer returns the per-sample pipeline shared by every poller: alerts,
// then store, then sinks, then callbacks.
func (b *Bridge) observer(ctx context.Context, st store.Store, m *metrics.Metrics) Observer {
	return func(s Sample) {
		s.Alerts = b.thresholds.Evaluate(s.Reading)
		for _, a := range s.Alerts {
			m.ObserveAlert(s.Device, string(a.Kind))
			b.logger.Warn("threshold exceeded",
				"device", s.Device,
				"kind", string(a.Kind),
				"value", a.Value,
				"threshold", a.Threshold,
			)
		}

		if prev, ok := st.Status(s.Device); ok && prev.State == StateError {
			b.logger.Info("device connection restored", "device", s.Device, "failed_polls", prev.ConsecutiveFailures)
		}
		st.Update(s)
		m.SetDeviceUp(s.Device, true)

		for _, sink := range b.sinks {
			err := b.publish(ctx, sink, s)
			m.ObservePublish(sink.Name(), err)
			if err != nil {
				b.logger.Warn("sink publish failed", "sink", sink.Name(), "device", s.Device, "error", err.Error())
			}
		}

		for _, cb := range b.callbacks {
			invokeObserverSafe(cb, copySample(s), b.logger)
		}
	}
}

// failureObserver records absent polls as connection state. Only the first
// failure of a streak is logged; the fetcher already logs each attempt.
func (b *Bridge) failureObserver(st store.Store, m *metrics.Metrics) FailureObserver {
	return func(device string, r Result) {
		status := st.RecordFailure(device, r.FetchedAt, r.Err)
		m.SetDeviceUp(device, false)
		if status.ConsecutiveFailures == 1 {
			b.logger.Warn("device connection lost", "device", device, "error", status.LastError)
		}
	}
}

// publish calls one sink with a bounded context and recovers panics.
func (b *Bridge) publish(ctx context.Context, sink Sink, s Sample) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			b.logger.Error("sink panic",
				"correlation_id", correlationID,
				"sink", sink.Name(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("sink %s panicked (correlation_id: %s): %v", sink.Name(), correlationID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return sink.Publish(ctx, copySample(s))
}

func (b *Bridge) closeSinks() {
	closeSinks(b.sinks, b.logger)
}

func closeSinks(sinks []Sink, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			logger.Warn("sink close failed", "sink", sink.Name(), "error", err.Error())
		}
	}
}

// Devices returns a copy of the configured devices.
func (b *Bridge) Devices() []Device {
	cp := make([]Device, len(b.devices))
	copy(cp, b.devices)
	return cp
}

// Port returns the configured HTTP port.
func (b *Bridge) Port() int {
	return b.port
}

// Thresholds returns the configured alert thresholds.
func (b *Bridge) Thresholds() Thresholds {
	return b.thresholds
}

// copySample gives each consumer its own Alerts slice.
func copySample(s Sample) Sample {
	if s.Alerts != nil {
		s.Alerts = append([]Alert(nil), s.Alerts...)
	}
	return s
}
