package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/growctl/internal/sensor"
)

const namespace = "growctl"

// Metrics holds the controller's Prometheus collectors. It also acts as
// a Sink so readings and device states reach the gauges the same way
// they reach MQTT and InfluxDB.
type Metrics struct {
	sensorValue     *prometheus.GaugeVec
	deviceOn        *prometheus.GaugeVec
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	ruleActuations  *prometheus.CounterVec
	framesDropped   prometheus.Counter
	clients         prometheus.Gauge
	historySaves    prometheus.Counter
	overrides       prometheus.Gauge
	telemetryDrops  prometheus.Counter
	sinkErrors      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sensorValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sensor_value",
				Help:      "Latest valid reading of each sensor.",
			},
			[]string{"sensor_id", "type"},
		),
		deviceOn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "device_on",
				Help:      "Last commanded state of each device (1 on, 0 off).",
			},
			[]string{"device_id"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actuator_commands_total",
				Help:      "Outlet commands sent, by control method and result.",
			},
			[]string{"method", "result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "actuator_command_duration_seconds",
				Help:      "Time taken by outlet commands.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		ruleActuations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_actuations_total",
				Help:      "Successful device commands issued by rules.",
			},
			[]string{"rule_id"},
		),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_frames_dropped_total",
			Help:      "Inbound WebSocket frames dropped because the queue was full or the frame too large.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients.",
		}),
		historySaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_buffers_saved_total",
			Help:      "History buffers written to storage.",
		}),
		overrides: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manual_overrides",
			Help:      "Devices currently under a manual override.",
		}),
		telemetryDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_dropped_total",
			Help:      "Telemetry updates dropped because the export queue was full.",
		}),
		sinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_write_errors_total",
				Help:      "Telemetry writes rejected or lost by an external sink.",
			},
			[]string{"sink"},
		),
	}
	reg.MustRegister(
		m.sensorValue,
		m.deviceOn,
		m.commands,
		m.commandDuration,
		m.ruleActuations,
		m.framesDropped,
		m.clients,
		m.historySaves,
		m.overrides,
		m.telemetryDrops,
		m.sinkErrors,
	)
	return m
}

// SensorReadings sets the sensor gauges.
func (m *Metrics) SensorReadings(readings []sensor.Reading, _ time.Time) {
	for _, r := range readings {
		m.sensorValue.WithLabelValues(r.ID, string(r.Type)).Set(r.Value)
	}
}

// DeviceState sets the device gauge.
func (m *Metrics) DeviceState(deviceID string, on bool, _ string, _ time.Time) {
	v := 0.0
	if on {
		v = 1
	}
	m.deviceOn.WithLabelValues(deviceID).Set(v)
}

// ForgetSensor drops the gauges of a removed sensor.
func (m *Metrics) ForgetSensor(sensorID string) {
	m.sensorValue.DeletePartialMatch(prometheus.Labels{"sensor_id": sensorID})
}

// ForgetDevice drops the gauge of a removed device.
func (m *Metrics) ForgetDevice(deviceID string) {
	m.deviceOn.DeleteLabelValues(deviceID)
}

// ObserveCommand records one outlet command. Its signature matches
// actuator.Observer.
func (m *Metrics) ObserveCommand(method string, ok bool, elapsed time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.commands.WithLabelValues(method, result).Inc()
	m.commandDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RuleActuated counts a successful rule command.
func (m *Metrics) RuleActuated(ruleID string) {
	m.ruleActuations.WithLabelValues(ruleID).Inc()
}

// FrameDropped counts a dropped inbound frame.
func (m *Metrics) FrameDropped() {
	m.framesDropped.Inc()
}

// SetClients sets the connected client gauge.
func (m *Metrics) SetClients(n int) {
	m.clients.Set(float64(n))
}

// HistorySaved adds n to the saved buffer counter.
func (m *Metrics) HistorySaved(n int) {
	m.historySaves.Add(float64(n))
}

// SetOverrides sets the active override gauge.
func (m *Metrics) SetOverrides(n int) {
	m.overrides.Set(float64(n))
}

// SinkWriteFailed counts a failed write to the named external sink.
func (m *Metrics) SinkWriteFailed(sink string) {
	m.sinkErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) telemetryDropped() {
	m.telemetryDrops.Inc()
}
