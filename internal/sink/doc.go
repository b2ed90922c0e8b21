// Package sink delivers samples to downstream consumers.
//
// Each sink implements Name, Publish and Close and satisfies
// [sensorbridge.Sink] structurally:
//
//   - [Console]: one line per sample on an io.Writer (the poll command's output)
//   - [Log]: one structured slog record per sample
//   - [MQTT]: JSON payloads on an MQTT topic (eclipse/paho)
//   - [Redis]: JSON payloads on a Redis Pub/Sub channel (go-redis)
//
// Sinks only forward; none of them stores samples.
package sink
