package sensorbridge

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// Observer receives every Sample a [Poller] obtains.
//
// Observers run synchronously on the poller's goroutine and must not block
// for long: the next poll waits for them. A panicking observer is recovered
// and logged.
type Observer func(Sample)

// FailureObserver receives the [Result] of every poll that obtained no
// Reading. It runs on the poller's goroutine like an [Observer].
type FailureObserver func(device string, result Result)

// Poller drives a [Fetcher] on a fixed interval.
//
// Each iteration fetches once, hands the Sample to every observer if a
// Reading was obtained, then sleeps the device interval regardless of how
// long the fetch took. Iterations never overlap, so a slow device delays its
// own next poll but never queues a second one.
//
// There is no backoff: an unreachable device is retried at the same cadence
// indefinitely. Absent polls are reported to the [FailureObserver] set with
// [Poller.OnFailure], which is how the bridge tracks connection state.
//
// A Poller is driven by a single goroutine. Configure it before calling
// [Poller.Run]; it is not safe to change observers while running.
type Poller struct {
	fetcher   *Fetcher
	interval  time.Duration
	observers []Observer
	onFailure FailureObserver
	logger    *slog.Logger
}

// NewPoller creates a Poller for f using the interval of f's device. Nil
// observers are ignored. A nil logger falls back to [slog.Default].
func NewPoller(f *Fetcher, logger *slog.Logger, observers ...Observer) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	obs := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			obs = append(obs, o)
		}
	}

	interval := f.device.interval
	if interval <= 0 {
		interval = defaultDeviceInterval
	}

	return &Poller{
		fetcher:   f,
		interval:  interval,
		observers: obs,
		logger:    logger.With("device", f.device.name),
	}
}

// OnFailure sets the observer for absent polls. A nil fn removes it.
func (p *Poller) OnFailure(fn FailureObserver) {
	p.onFailure = fn
}

// Interval returns the pause between iterations.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls until ctx is cancelled, which is how the process signals
// termination; there is no other stop condition. Run always returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "url", p.fetcher.device.url, "interval", p.interval.String())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-timer.C:
		}

		p.PollOnce(ctx)
		timer.Reset(p.interval)
	}
}

// PollOnce performs a single iteration without sleeping. It returns the
// Sample and true when a Reading was obtained and delivered to observers.
func (p *Poller) PollOnce(ctx context.Context) (Sample, bool) {
	result := p.fetcher.FetchResult(ctx)
	if !result.OK() {
		if p.onFailure != nil {
			p.invokeFailureSafe(result)
		}
		return Sample{}, false
	}

	sample := Sample{
		Device:    p.fetcher.device.name,
		Reading:   result.Reading,
		FetchedAt: result.FetchedAt,
		LatencyMs: result.Latency.Milliseconds(),
	}

	p.logger.Debug("poll completed", "latency_ms", sample.LatencyMs)

	for _, o := range p.observers {
		invokeObserverSafe(o, sample, p.logger)
	}
	return sample, true
}

func (p *Poller) invokeFailureSafe(result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("failure observer panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	p.onFailure(p.fetcher.device.name, result)
}

// invokeObserverSafe calls an observer with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func invokeObserverSafe(o Observer, sample Sample, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("observer panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	o(sample)
}
