package history

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nerrad567/growctl/internal/clock"
	"github.com/nerrad567/growctl/internal/storage"
)

// DefaultSaveInterval is the minimum spacing between persistence passes.
const DefaultSaveInterval = 60 * time.Second

// Logger defines the logging interface used by the engine.
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

type series [len(Ranges)]*buffer

// Engine owns the history buffers of every sensor. It is not safe for
// concurrent use; the controller loop is its only caller.
type Engine struct {
	store        storage.Store
	clock        clock.Clock
	series       map[string]*series
	saveInterval time.Duration
	lastSave     time.Duration
	logger       Logger
}

// NewEngine creates an engine persisting to store. Timestamps come from
// clk.Wall and save gating from clk.Now.
func NewEngine(store storage.Store, clk clock.Clock) *Engine {
	return &Engine{
		store:        store,
		clock:        clk,
		series:       make(map[string]*series),
		saveInterval: DefaultSaveInterval,
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetSaveInterval overrides DefaultSaveInterval.
func (e *Engine) SetSaveInterval(d time.Duration) {
	if d > 0 {
		e.saveInterval = d
	}
}

// FilePath returns the persisted location of a sensor's buffer.
func FilePath(sensorID string, r Range) string {
	return fmt.Sprintf("%s/%s_%s.bin", storage.HistoryDir, sensorID, r)
}

// Init allocates buffers for each sensor and restores any persisted state.
func (e *Engine) Init(sensorIDs []string) {
	for _, id := range sensorIDs {
		e.ensure(id)
	}
	e.logger.Info("history initialised", "sensors", len(e.series))
}

func (e *Engine) ensure(sensorID string) *series {
	if s, ok := e.series[sensorID]; ok {
		return s
	}
	s := new(series)
	for _, r := range Ranges {
		s[r] = newBuffer(r)
		e.restore(sensorID, r, s[r])
	}
	e.series[sensorID] = s
	return s
}

func (e *Engine) restore(sensorID string, r Range, b *buffer) {
	path := FilePath(sensorID, r)
	data, err := e.store.Read(path)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Warn("failed to read history", "sensor_id", sensorID, "range", r.String(), "error", err)
		return
	}
	if err := b.unmarshal(data); err != nil {
		e.logger.Warn("discarding history", "sensor_id", sensorID, "range", r.String(), "error", err)
		return
	}
	e.logger.Debug("history restored", "sensor_id", sensorID, "range", r.String(), "points", b.count)
}

// Record adds a sample taken now.
func (e *Engine) Record(sensorID string, value float64) {
	e.RecordAt(sensorID, value, e.clock.Wall())
}

// RecordAt adds a sample with an explicit wall-clock timestamp in seconds.
func (e *Engine) RecordAt(sensorID string, value float64, ts uint32) {
	s := e.ensure(sensorID)
	for _, b := range s {
		b.accumulate(ts, value)
	}
}

// Query copies the sensor's points for the range into out, oldest first,
// and returns how many were copied.
//
// Parameters:
//   - sensorID: Logical sensor ID
//   - r: Range12h, Range24h or Range7d
//   - out: Destination; at most len(out) points are copied, oldest first
//
// Returns:
//   - int: Points copied, 0 for an unknown sensor
func (e *Engine) Query(sensorID string, r Range, out []Point) int {
	s, ok := e.series[sensorID]
	if !ok || r < Range12h || r > Range7d {
		return 0
	}
	return s[r].copyOrdered(out)
}

// Points returns every stored point for the range, oldest first.
func (e *Engine) Points(sensorID string, r Range) []Point {
	out := make([]Point, r.Capacity())
	return out[:e.Query(sensorID, r, out)]
}

// PersistTick saves every non-empty buffer when the save interval has
// elapsed since the previous pass. It returns the number of buffers
// written and whether a pass ran.
func (e *Engine) PersistTick() (saved int, ran bool) {
	now := e.clock.Now()
	if now-e.lastSave < e.saveInterval {
		return 0, false
	}
	e.lastSave = now
	return e.Flush(), true
}

// Flush saves every non-empty buffer immediately.
func (e *Engine) Flush() int {
	saved := 0
	for _, id := range e.Sensors() {
		for _, r := range Ranges {
			b := e.series[id][r]
			if b.count == 0 {
				continue
			}
			if err := e.store.Write(FilePath(id, r), b.marshal()); err != nil {
				e.logger.Error("failed to save history", "sensor_id", id, "range", r.String(), "error", err)
				continue
			}
			saved++
		}
	}
	e.logger.Debug("history saved", "buffers", saved)
	return saved
}

// RemoveSensor drops the sensor's buffers and deletes its files.
func (e *Engine) RemoveSensor(sensorID string) {
	delete(e.series, sensorID)
	for _, r := range Ranges {
		if err := e.store.Remove(FilePath(sensorID, r)); err != nil {
			e.logger.Error("failed to remove history", "sensor_id", sensorID, "range", r.String(), "error", err)
		}
	}
	e.logger.Info("history removed", "sensor_id", sensorID)
}

// Sensors returns the IDs with allocated buffers, sorted.
func (e *Engine) Sensors() []string {
	ids := make([]string, 0, len(e.series))
	for id := range e.series {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
