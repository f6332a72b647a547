// Package telemetry exports controller state to the outside world:
// Prometheus metrics, MQTT topics and InfluxDB points.
//
// The controller loop hands readings and device changes to a Bridge,
// which queues them and fans them out to every Sink on its own goroutine
// so a slow broker never stalls the loop.
package telemetry
