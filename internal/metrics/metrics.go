package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sensorbridge"

// Metrics holds the bridge's collectors and the registry they live on.
type Metrics struct {
	registry *prometheus.Registry

	// Fetches counts fetch attempts by device and outcome ("ok" or "absent").
	Fetches *prometheus.CounterVec

	// FetchDuration observes request latency by device.
	FetchDuration *prometheus.HistogramVec

	// FieldFailures counts fields left at their default, by device, field
	// and reason ("missing", "invalid", "panic").
	FieldFailures *prometheus.CounterVec

	// Publishes counts sink deliveries by sink and outcome ("ok" or "error").
	Publishes *prometheus.CounterVec

	// Alerts counts threshold alerts by device and kind.
	Alerts *prometheus.CounterVec

	// DeviceUp is 1 while a device's most recent poll succeeded, 0 otherwise.
	DeviceUp *prometheus.GaugeVec

	// StreamClients tracks connected SSE and WebSocket clients by transport.
	StreamClients *prometheus.GaugeVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Device fetch attempts by outcome.",
		}, []string{"device", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Device fetch latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"device"}),
		FieldFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_failures_total",
			Help:      "Fields that fell back to their default value.",
		}, []string{"device", "field", "reason"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publishes_total",
			Help:      "Samples delivered to sinks by outcome.",
		}, []string{"sink", "outcome"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Threshold alerts raised.",
		}, []string{"device", "kind"}),
		DeviceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_up",
			Help:      "Whether the last poll of a device obtained a reading.",
		}, []string{"device"}),
		StreamClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected streaming clients.",
		}, []string{"transport"}),
	}

	m.registry.MustRegister(
		m.Fetches,
		m.FetchDuration,
		m.FieldFailures,
		m.Publishes,
		m.Alerts,
		m.DeviceUp,
		m.StreamClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(device, outcome string, latency time.Duration) {
	m.Fetches.WithLabelValues(device, outcome).Inc()
	m.FetchDuration.WithLabelValues(device).Observe(latency.Seconds())
}

// ObserveField records one field that fell back to its default.
func (m *Metrics) ObserveField(device, field, reason string) {
	m.FieldFailures.WithLabelValues(device, field, reason).Inc()
}

// ObservePublish records one sink delivery.
func (m *Metrics) ObservePublish(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Publishes.WithLabelValues(sink, outcome).Inc()
}

// ObserveAlert records one threshold alert.
func (m *Metrics) ObserveAlert(device, kind string) {
	m.Alerts.WithLabelValues(device, kind).Inc()
}

// SetDeviceUp records whether device is currently reachable.
func (m *Metrics) SetDeviceUp(device string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.DeviceUp.WithLabelValues(device).Set(v)
}

// StreamOpened and StreamClosed track streaming clients per transport.
func (m *Metrics) StreamOpened(transport string) {
	m.StreamClients.WithLabelValues(transport).Inc()
}

func (m *Metrics) StreamClosed(transport string) {
	m.StreamClients.WithLabelValues(transport).Dec()
}
