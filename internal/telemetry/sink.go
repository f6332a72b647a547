package telemetry

import (
	"time"

	"github.com/nerrad567/growctl/internal/infrastructure/mqtt"
	"github.com/nerrad567/growctl/internal/sensor"
)

// Sink receives telemetry. Implementations are called from the Bridge
// goroutine only.
type Sink interface {
	SensorReadings(readings []sensor.Reading, ts time.Time)
	DeviceState(deviceID string, on bool, source string, ts time.Time)
}

// Sources of a device state change.
const (
	SourceRule   = "rule"
	SourceManual = "manual"
)

// Logger defines the logging interface used by the sinks and the Bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Publisher is the subset of *mqtt.Client the MQTT sink uses.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
}

// MQTTSink publishes readings and retained device states.
type MQTTSink struct {
	client Publisher
	logger Logger
}

// NewMQTTSink creates a sink over client.
func NewMQTTSink(client Publisher, logger Logger) *MQTTSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSink{client: client, logger: logger}
}

type readingPayload struct {
	Value     float64     `json:"value"`
	Type      sensor.Kind `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

type statePayload struct {
	On        bool   `json:"on"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"`
}

// SensorReadings publishes one message per reading.
func (s *MQTTSink) SensorReadings(readings []sensor.Reading, ts time.Time) {
	topics := s.client.Topics()
	for _, r := range readings {
		payload := readingPayload{Value: r.Value, Type: r.Type, Timestamp: ts.Unix()}
		if err := s.client.PublishJSON(topics.SensorReading(r.ID), payload, false); err != nil {
			s.logger.Warn("mqtt reading publish failed", "sensor_id", r.ID, "error", err)
		}
	}
}

// DeviceState publishes the retained state of one device.
func (s *MQTTSink) DeviceState(deviceID string, on bool, source string, ts time.Time) {
	payload := statePayload{On: on, Source: source, Timestamp: ts.Unix()}
	if err := s.client.PublishJSON(s.client.Topics().DeviceState(deviceID), payload, true); err != nil {
		s.logger.Warn("mqtt state publish failed", "device_id", deviceID, "error", err)
	}
}

// SubscribeCommands delivers every payload on the command topic to handler.
func (s *MQTTSink) SubscribeCommands(handler func(payload []byte)) error {
	return s.client.Subscribe(s.client.Topics().Command(), 1, func(_ string, payload []byte) error {
		handler(payload)
		return nil
	})
}

// PointWriter is the subset of *influxdb.Client the Influx sink uses.
type PointWriter interface {
	WriteSensorReading(sensorID, kind string, value float64, ts time.Time)
	WriteDeviceState(deviceID string, on bool, source string, ts time.Time)
}

// InfluxSink writes readings and device states as InfluxDB points.
type InfluxSink struct {
	writer PointWriter
}

// NewInfluxSink creates a sink over writer.
func NewInfluxSink(writer PointWriter) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// SensorReadings writes one point per reading.
func (s *InfluxSink) SensorReadings(readings []sensor.Reading, ts time.Time) {
	for _, r := range readings {
		s.writer.WriteSensorReading(r.ID, string(r.Type), r.Value, ts)
	}
}

// DeviceState writes one device state point.
func (s *InfluxSink) DeviceState(deviceID string, on bool, source string, ts time.Time) {
	s.writer.WriteDeviceState(deviceID, on, source, ts)
}
