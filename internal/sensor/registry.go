package sensor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/growctl/internal/storage"
)

// Logger defines the logging interface used by the sensor package.
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

// Registry is the catalog of logical sensors, kept in insertion order and
// persisted to /sensors.json after every change.
type Registry struct {
	store   storage.Store
	sensors []Sensor
	logger  Logger
}

// NewRegistry creates an empty registry backed by store. Call Load to read
// the persisted catalog.
func NewRegistry(store storage.Store) *Registry {
	return &Registry{store: store, logger: noopLogger{}}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load replaces the in-memory catalog with the contents of /sensors.json.
//
// A missing file yields an empty catalog. Entries that fail validation are
// dropped with a warning so one bad entry cannot take the others down.
func (r *Registry) Load() error {
	var loaded []Sensor
	err := storage.ReadJSON(r.store, storage.SensorsPath, &loaded)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.sensors = nil
		r.logger.Info("no sensors file found")
		return nil
	case err != nil:
		return fmt.Errorf("loading sensors: %w", err)
	}

	// Hardware-bound sensors first, so derived ones can be checked against them.
	byID := make(map[string]Sensor, len(loaded))
	var kept []Sensor
	for _, s := range loaded {
		s = normalise(s)
		if _, dup := byID[s.ID]; dup {
			r.logger.Warn("dropping duplicate sensor", "sensor_id", s.ID)
			continue
		}
		if err := validateSelf(s); err != nil {
			r.logger.Warn("dropping invalid sensor", "sensor_id", s.ID, "error", err)
			continue
		}
		byID[s.ID] = s
		kept = append(kept, s)
	}

	lookup := func(id string) (Sensor, bool) {
		s, ok := byID[id]
		return s, ok
	}
	r.sensors = kept[:0:0]
	for _, s := range kept {
		if err := validateSources(s, lookup); err != nil {
			r.logger.Warn("dropping derived sensor with bad sources", "sensor_id", s.ID, "error", err)
			continue
		}
		r.sensors = append(r.sensors, s)
	}

	r.logger.Info("sensors loaded", "count", len(r.sensors))
	return nil
}

// Add validates s and appends it to the catalog. An empty ID is replaced
// with a generated one.
func (r *Registry) Add(s Sensor) (Sensor, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s = normalise(s)
	if _, ok := r.Get(s.ID); ok {
		return Sensor{}, fmt.Errorf("%w: %q", ErrSensorExists, s.ID)
	}

	next := append(r.List(), s)
	if err := validateSet(next); err != nil {
		return Sensor{}, err
	}

	r.sensors = next
	r.save()
	r.logger.Info("sensor added", "sensor_id", s.ID, "type", s.Type, "hardware", s.HardwareType)
	return s, nil
}

// Update applies a partial update to the sensor with the given ID. The
// resulting catalog must still be valid for every derived sensor.
func (r *Registry) Update(id string, p Patch) (Sensor, error) {
	idx := r.index(id)
	if idx < 0 {
		return Sensor{}, fmt.Errorf("%w: %q", ErrSensorNotFound, id)
	}

	updated := normalise(p.Apply(r.sensors[idx]))
	next := r.List()
	next[idx] = updated
	if err := validateSet(next); err != nil {
		return Sensor{}, err
	}

	r.sensors = next
	r.save()
	r.logger.Info("sensor updated", "sensor_id", id)
	return updated, nil
}

// Remove deletes the sensor with the given ID. Sensors referenced by a
// derived sensor cannot be removed.
func (r *Registry) Remove(id string) error {
	idx := r.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrSensorNotFound, id)
	}
	for _, s := range r.sensors {
		if s.References(id) {
			return fmt.Errorf("%w: %q is used by %q", ErrSensorInUse, id, s.ID)
		}
	}

	r.sensors = append(r.sensors[:idx:idx], r.sensors[idx+1:]...)
	r.save()
	r.logger.Info("sensor removed", "sensor_id", id)
	return nil
}

// Replace swaps the whole catalog, as done by a configuration restore.
func (r *Registry) Replace(sensors []Sensor) error {
	next := make([]Sensor, 0, len(sensors))
	for _, s := range sensors {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		next = append(next, normalise(s))
	}
	if err := validateSet(next); err != nil {
		return err
	}
	r.sensors = next
	r.save()
	r.logger.Info("sensors replaced", "count", len(next))
	return nil
}

// Get returns the sensor with the given ID.
func (r *Registry) Get(id string) (Sensor, bool) {
	if idx := r.index(id); idx >= 0 {
		return r.sensors[idx], true
	}
	return Sensor{}, false
}

// List returns a copy of the catalog in insertion order.
func (r *Registry) List() []Sensor {
	out := make([]Sensor, len(r.sensors))
	copy(out, r.sensors)
	return out
}

// IDs returns the sensor IDs in insertion order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.sensors))
	for i, s := range r.sensors {
		ids[i] = s.ID
	}
	return ids
}

// Count returns the number of configured sensors.
func (r *Registry) Count() int {
	return len(r.sensors)
}

func (r *Registry) index(id string) int {
	for i := range r.sensors {
		if r.sensors[i].ID == id {
			return i
		}
	}
	return -1
}

// save writes the catalog. Failures are logged; memory stays authoritative.
func (r *Registry) save() {
	doc := r.sensors
	if doc == nil {
		doc = []Sensor{}
	}
	if err := storage.WriteJSON(r.store, storage.SensorsPath, doc); err != nil {
		r.logger.Error("failed to save sensors", "error", err)
	}
}
