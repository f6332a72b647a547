package telemetry

import (
	"context"
	"slices"
	"time"

	"github.com/nerrad567/growctl/internal/sensor"
)

const defaultQueueSize = 64

type update struct {
	readings []sensor.Reading
	deviceID string
	on       bool
	source   string
	ts       time.Time
}

// Bridge queues telemetry from the controller loop and delivers it to
// the sinks on a separate goroutine. Enqueueing never blocks; when the
// queue is full the update is dropped.
type Bridge struct {
	sinks   []Sink
	queue   chan update
	metrics *Metrics
	logger  Logger
}

// NewBridge creates a bridge over sinks. metrics may be nil; when set it
// counts dropped updates.
func NewBridge(metrics *Metrics, sinks ...Sink) *Bridge {
	return &Bridge{
		sinks:   sinks,
		queue:   make(chan update, defaultQueueSize),
		metrics: metrics,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Sinks returns the number of attached sinks.
func (b *Bridge) Sinks() int { return len(b.sinks) }

// SensorReadings queues a batch of readings.
func (b *Bridge) SensorReadings(readings []sensor.Reading, ts time.Time) {
	if len(readings) == 0 {
		return
	}
	b.enqueue(update{readings: slices.Clone(readings), ts: ts})
}

// DeviceState queues a device state change.
func (b *Bridge) DeviceState(deviceID string, on bool, source string, ts time.Time) {
	b.enqueue(update{deviceID: deviceID, on: on, source: source, ts: ts})
}

func (b *Bridge) enqueue(u update) {
	if len(b.sinks) == 0 {
		return
	}
	select {
	case b.queue <- u:
	default:
		b.logger.Warn("telemetry queue full, dropping update")
		if b.metrics != nil {
			b.metrics.telemetryDropped()
		}
	}
}

// Run delivers queued updates until ctx is done, then drains what is
// already queued.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case u := <-b.queue:
			b.deliver(u)
		case <-ctx.Done():
			for {
				select {
				case u := <-b.queue:
					b.deliver(u)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) deliver(u update) {
	for _, s := range b.sinks {
		if u.readings != nil {
			s.SensorReadings(u.readings, u.ts)
		} else {
			s.DeviceState(u.deviceID, u.on, u.source, u.ts)
		}
	}
}
