package device

import (
	"fmt"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Registry.
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

// Registry holds the device catalog in insertion order.
//
// Every mutation is written through the Repository. A failed save is
// logged and the in-memory catalog stays authoritative.
type Registry struct {
	repo    Repository
	devices []Device
	logger  Logger
}

// NewRegistry creates an empty registry. Call Load to read persisted devices.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load replaces the catalog with the persisted devices. Every device
// starts off and manual; call SetControlModes once rules are loaded.
func (r *Registry) Load() error {
	records, err := r.repo.Load()
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(records))
	r.devices = make([]Device, 0, len(records))
	for _, rec := range records {
		d := rec.Device()
		if seen[d.ID] {
			r.logger.Warn("dropping duplicate device", "device_id", d.ID)
			continue
		}
		if err := Validate(d); err != nil {
			r.logger.Warn("dropping invalid device", "device_id", d.ID, "error", err)
			continue
		}
		seen[d.ID] = true
		r.devices = append(r.devices, d)
	}

	r.logger.Info("devices loaded", "count", len(r.devices))
	return nil
}

// Add validates d and appends it. An empty ID is replaced with a generated one.
func (r *Registry) Add(d Device) (Device, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.ControlMode = ModeManual
	d.IsOn = false

	if r.index(d.ID) >= 0 {
		return Device{}, fmt.Errorf("%w: %q", ErrDeviceExists, d.ID)
	}
	if err := Validate(d); err != nil {
		return Device{}, err
	}

	r.devices = append(r.devices, d)
	r.save()
	r.logger.Info("device added", "device_id", d.ID, "method", d.ControlMethod)
	return d, nil
}

// Update applies a partial update to the device with the given ID.
func (r *Registry) Update(id string, p Patch) (Device, error) {
	idx := r.index(id)
	if idx < 0 {
		return Device{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
	}

	updated := p.Apply(r.devices[idx])
	if err := Validate(updated); err != nil {
		return Device{}, err
	}

	r.devices[idx] = updated
	r.save()
	r.logger.Info("device updated", "device_id", id)
	return updated, nil
}

// Remove deletes the device with the given ID. Cascading to rules is the
// caller's responsibility.
func (r *Registry) Remove(id string) error {
	idx := r.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
	}
	r.devices = append(r.devices[:idx:idx], r.devices[idx+1:]...)
	r.save()
	r.logger.Info("device removed", "device_id", id)
	return nil
}

// Replace swaps the whole catalog, as done by a configuration restore.
// Runtime state of devices that survive the swap is kept.
func (r *Registry) Replace(records []Record) error {
	next := make([]Device, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		d := rec.Device()
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: %q", ErrDeviceExists, d.ID)
		}
		if err := Validate(d); err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}
		if old, ok := r.Get(d.ID); ok {
			d.IsOn = old.IsOn
		}
		seen[d.ID] = true
		next = append(next, d)
	}
	r.devices = next
	r.save()
	r.logger.Info("devices replaced", "count", len(next))
	return nil
}

// Get returns the device with the given ID.
func (r *Registry) Get(id string) (Device, bool) {
	if idx := r.index(id); idx >= 0 {
		return r.devices[idx], true
	}
	return Device{}, false
}

// List returns a copy of the catalog in insertion order.
func (r *Registry) List() []Device {
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Records returns the persisted view of the catalog.
func (r *Registry) Records() []Record {
	out := make([]Record, len(r.devices))
	for i, d := range r.devices {
		out[i] = d.Record()
	}
	return out
}

// Count returns the number of devices.
func (r *Registry) Count() int {
	return len(r.devices)
}

// IsOn returns the cached state of the device. Unknown devices are off.
func (r *Registry) IsOn(id string) bool {
	d, _ := r.Get(id)
	return d.IsOn
}

// SetState records the last commanded state. It reports false for unknown devices.
func (r *Registry) SetState(id string, on bool) bool {
	idx := r.index(id)
	if idx < 0 {
		return false
	}
	r.devices[idx].IsOn = on
	return true
}

// FindByTarget returns the device with the given method and target.
func (r *Registry) FindByTarget(method, target string) (Device, bool) {
	for _, d := range r.devices {
		if d.ControlMethod == method && d.IPAddress == target {
			return d, true
		}
	}
	return Device{}, false
}

// SetControlModes marks each device automatic when automated(id) is true
// and manual otherwise.
func (r *Registry) SetControlModes(automated func(id string) bool) {
	for i := range r.devices {
		if automated(r.devices[i].ID) {
			r.devices[i].ControlMode = ModeAutomatic
		} else {
			r.devices[i].ControlMode = ModeManual
		}
	}
}

func (r *Registry) index(id string) int {
	for i := range r.devices {
		if r.devices[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) save() {
	if err := r.repo.Save(r.Records()); err != nil {
		r.logger.Error("failed to save devices", "error", err)
	}
}
