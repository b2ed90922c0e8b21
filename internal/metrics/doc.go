// Package metrics exposes Prometheus collectors for sensorbridge.
//
// Collectors are registered on a private registry owned by [Metrics], so
// several bridges (and tests) can coexist in one process without clashing on
// the global default registry.
package metrics
