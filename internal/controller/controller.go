package controller

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/nerrad567/growctl/internal/automation"
	"github.com/nerrad567/growctl/internal/clock"
	"github.com/nerrad567/growctl/internal/device"
	"github.com/nerrad567/growctl/internal/history"
	"github.com/nerrad567/growctl/internal/ingress"
	"github.com/nerrad567/growctl/internal/sensor"
	"github.com/nerrad567/growctl/internal/settings"
	"github.com/nerrad567/growctl/internal/telemetry"
)

// Defaults for Options.
const (
	DefaultTickInterval      = 100 * time.Millisecond
	DefaultBroadcastInterval = 5 * time.Second

	taskBuffer = 16
)

// Logger defines the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broadcaster delivers outbound frames to WebSocket clients.
type Broadcaster interface {
	// Broadcast sends data to every connected client.
	Broadcast(data []byte)

	// SendTo sends data to one client and reports whether it is connected.
	SendTo(clientID string, data []byte) bool
}

// Instruments receives controller events for metrics.
type Instruments interface {
	RuleActuated(ruleID string)
	SetOverrides(n int)
	HistorySaved(n int)
	ForgetSensor(sensorID string)
	ForgetDevice(deviceID string)
}

type noopInstruments struct{}

func (noopInstruments) RuleActuated(string) {}
func (noopInstruments) SetOverrides(int)    {}
func (noopInstruments) HistorySaved(int)    {}
func (noopInstruments) ForgetSensor(string) {}
func (noopInstruments) ForgetDevice(string) {}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast([]byte)           {}
func (noopBroadcaster) SendTo(string, []byte) bool { return false }

type noopSink struct{}

func (noopSink) SensorReadings([]sensor.Reading, time.Time)  {}
func (noopSink) DeviceState(string, bool, string, time.Time) {}

// Deps holds the components the controller owns. Out, Telemetry and
// Metrics are optional.
type Deps struct {
	Clock     clock.Clock
	Sensors   *sensor.Registry
	Reader    *sensor.Reader
	Devices   *device.Registry
	Rules     *automation.Engine
	History   *history.Engine
	Settings  *settings.Manager
	Actuator  automation.Actuator
	Ingress   *ingress.Ring
	Out       Broadcaster
	Telemetry telemetry.Sink
	Metrics   Instruments
	Version   string
}

// Options configures loop cadences. Zero values select the defaults.
type Options struct {
	TickInterval      time.Duration
	BroadcastInterval time.Duration

	// OverrideDuration is how long a manual command keeps rules off a
	// device. Zero selects automation.DefaultOverride.
	OverrideDuration time.Duration
}

// Controller is the orchestrator loop.
type Controller struct {
	clock    clock.Clock
	sensors  *sensor.Registry
	reader   *sensor.Reader
	devices  *device.Registry
	rules    *automation.Engine
	history  *history.Engine
	settings *settings.Manager
	actuator automation.Actuator
	ingress  *ingress.Ring
	out      Broadcaster
	sink     telemetry.Sink
	metrics  Instruments
	version  string
	logger   Logger

	tickInterval      time.Duration
	broadcastInterval time.Duration
	overrideDuration  time.Duration

	tasks   chan func(context.Context)
	stopped chan struct{}

	readings      automation.Readings
	sampled       bool
	lastBroadcast time.Duration
	readingsDirty bool
}

// New creates a controller over deps.
func New(deps Deps, opts Options) *Controller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.BroadcastInterval <= 0 {
		opts.BroadcastInterval = DefaultBroadcastInterval
	}
	if opts.OverrideDuration <= 0 {
		opts.OverrideDuration = automation.DefaultOverride
	}
	c := &Controller{
		clock:             deps.Clock,
		sensors:           deps.Sensors,
		reader:            deps.Reader,
		devices:           deps.Devices,
		rules:             deps.Rules,
		history:           deps.History,
		settings:          deps.Settings,
		actuator:          deps.Actuator,
		ingress:           deps.Ingress,
		out:               deps.Out,
		sink:              deps.Telemetry,
		metrics:           deps.Metrics,
		version:           deps.Version,
		logger:            noopLogger{},
		tickInterval:      opts.TickInterval,
		broadcastInterval: opts.BroadcastInterval,
		overrideDuration:  opts.OverrideDuration,
		tasks:             make(chan func(context.Context), taskBuffer),
		stopped:           make(chan struct{}),
		readings:          automation.Readings{},
	}
	if c.out == nil {
		c.out = noopBroadcaster{}
	}
	if c.sink == nil {
		c.sink = noopSink{}
	}
	if c.metrics == nil {
		c.metrics = noopInstruments{}
	}
	c.devices.SetControlModes(c.rules.IsDeviceUsedByEnabledRule)
	c.reader.SetLightFactor(c.settings.Get().LightFactor)
	return c
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetBroadcaster replaces the outbound channel. It must be called before Run.
func (c *Controller) SetBroadcaster(out Broadcaster) {
	c.out = out
}

// Run ticks until ctx is done, then saves history one final time.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	c.logger.Info("controller loop started",
		"tick_interval", c.tickInterval.String(),
		"broadcast_interval", c.broadcastInterval.String(),
	)
	for {
		c.Tick(ctx)
		select {
		case <-ctx.Done():
			saved := c.history.Flush()
			c.metrics.HistorySaved(saved)
			c.logger.Info("controller loop stopped", "history_buffers_saved", saved)
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one pass of the loop.
func (c *Controller) Tick(ctx context.Context) {
	c.ingress.Drain(func(f ingress.Frame) {
		c.handle(ctx, f.ClientID, f.Data)
	})
	c.runTasks(ctx)

	now := c.clock.Now()
	if !c.sampled || now-c.lastBroadcast >= c.broadcastInterval {
		c.sampled = true
		c.lastBroadcast = now
		c.sample(ctx)
	}

	if c.readingsDirty {
		c.readingsDirty = false
		c.expireOverrides()
		c.rules.Evaluate(ctx, c.readings)
		c.forwardEvents()
		c.metrics.SetOverrides(c.rules.ActiveOverrides())
	}

	if saved, ran := c.history.PersistTick(); ran {
		c.metrics.HistorySaved(saved)
	}
}

func (c *Controller) runTasks(ctx context.Context) {
	for {
		select {
		case task := <-c.tasks:
			task(ctx)
		default:
			return
		}
	}
}

// sample refreshes the sensors, records the valid readings and broadcasts them.
func (c *Controller) sample(ctx context.Context) {
	c.reader.Refresh(ctx)
	snapshot := c.reader.Snapshot()

	readings := make(automation.Readings, len(snapshot))
	for _, r := range snapshot {
		c.history.Record(r.ID, r.Value)
		readings[r.ID] = r.Value
	}
	c.readings = readings
	c.readingsDirty = true

	c.broadcast(sensorsFrame{
		Type:      FrameSensors,
		Data:      orEmpty(snapshot),
		Timestamp: c.wallMillis(),
	})
	c.sink.SensorReadings(snapshot, c.wallTime())
}

func (c *Controller) expireOverrides() {
	expired := c.rules.ClearExpiredOverrides()
	for _, id := range expired {
		c.broadcast(overrideClearedFrame{Type: FrameOverrideCleared, DeviceID: id})
	}
	if len(expired) > 0 {
		c.broadcastDevices()
	}
}

// forwardEvents turns rule actuations into device_status frames.
func (c *Controller) forwardEvents() {
	forwarded := 0
	for {
		select {
		case ev := <-c.rules.Events():
			c.broadcast(deviceStatusFrame{
				Type:     FrameDeviceStatus,
				DeviceID: ev.DeviceID,
				Target:   ev.Target,
				On:       ev.On,
				Success:  true,
			})
			c.sink.DeviceState(ev.DeviceID, ev.On, telemetry.SourceRule, c.wallTime())
			c.metrics.RuleActuated(ev.RuleID)
			forwarded++
		default:
			if forwarded > 0 {
				c.broadcastDevices()
			}
			return
		}
	}
}

// Task states shared between Do and the loop.
const (
	taskPending int32 = iota
	taskRunning
	taskAbandoned
)

// Do runs fn on the loop goroutine and waits for it to finish. It returns
// ErrBusy without queueing when the task queue is full. When ctx ends
// before the loop picks the task up, fn is never run; once fn has started,
// Do waits for it and returns nil.
func (c *Controller) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	done := make(chan struct{})
	task := func(context.Context) {
		if !state.CompareAndSwap(taskPending, taskRunning) {
			return
		}
		fn()
		close(done)
	}

	select {
	case <-c.stopped:
		return ErrStopped
	default:
	}
	if !c.submit(task) {
		return ErrBusy
	}

	select {
	case <-done:
		return nil
	case <-c.stopped:
		if state.CompareAndSwap(taskPending, taskAbandoned) {
			return ErrStopped
		}
	case <-ctx.Done():
		if state.CompareAndSwap(taskPending, taskAbandoned) {
			return ctx.Err()
		}
	}
	// fn is already running on the loop.
	<-done
	return nil
}

// submit queues a task without waiting. It reports false when the queue is full.
func (c *Controller) submit(task func(context.Context)) bool {
	select {
	case c.tasks <- task:
		return true
	default:
		return false
	}
}

// Welcome sends the sensor, device and rule catalogs to a newly connected client.
func (c *Controller) Welcome(clientID string) {
	ok := c.submit(func(context.Context) {
		c.sendTo(clientID, c.sensorConfigFrame())
		c.sendTo(clientID, c.devicesFrame())
		c.sendTo(clientID, c.rulesFrame())
	})
	if !ok {
		c.logger.Warn("task queue full, skipping welcome", "client_id", clientID)
	}
}

// Remote handles a message that arrived outside the WebSocket, such as
// the MQTT command topic. Replies addressed to the sender are discarded.
func (c *Controller) Remote(payload []byte) {
	data := append([]byte(nil), payload...)
	if !c.submit(func(ctx context.Context) { c.handle(ctx, "", data) }) {
		c.logger.Warn("task queue full, dropping remote command")
	}
}

// ─── Frame helpers ─────────────────────────────────────────────────

func (c *Controller) encode(v any) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode frame", "error", err)
		return nil, false
	}
	return data, true
}

func (c *Controller) broadcast(v any) {
	if data, ok := c.encode(v); ok {
		c.out.Broadcast(data)
	}
}

func (c *Controller) sendTo(clientID string, v any) {
	if clientID == "" {
		return
	}
	if data, ok := c.encode(v); ok {
		c.out.SendTo(clientID, data)
	}
}

func (c *Controller) reject(clientID, request string, err error) {
	c.logger.Debug("request rejected", "client_id", clientID, "request", request, "error", err)
	c.sendTo(clientID, errorFrame{Type: FrameError, Message: err.Error(), Request: request})
}

func (c *Controller) devicesFrame() dataFrame {
	c.devices.SetControlModes(c.rules.IsDeviceUsedByEnabledRule)
	return dataFrame{Type: FrameDevices, Data: orEmpty(c.devices.List())}
}

func (c *Controller) rulesFrame() dataFrame {
	return dataFrame{Type: FrameRules, Data: orEmpty(c.rules.List())}
}

func (c *Controller) sensorConfigFrame() dataFrame {
	return dataFrame{Type: FrameSensorConfig, Data: orEmpty(c.sensors.List())}
}

func (c *Controller) settingsFrame() dataFrame {
	return dataFrame{Type: FrameSettings, Data: c.settings.Get()}
}

func (c *Controller) broadcastDevices() { c.broadcast(c.devicesFrame()) }
func (c *Controller) broadcastRules()   { c.broadcast(c.rulesFrame()) }
func (c *Controller) broadcastSensors() { c.broadcast(c.sensorConfigFrame()) }

func (c *Controller) wallTime() time.Time {
	return time.Unix(int64(c.clock.Wall()), 0)
}

func (c *Controller) wallMillis() int64 {
	return int64(c.clock.Wall()) * 1000
}
