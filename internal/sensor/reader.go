package sensor

import (
	"context"
	"errors"
	"math"
	"slices"
)

type cachedSample struct {
	values Sample
	valid  bool
}

// Reader resolves logical sensor IDs to their latest values.
//
// Hardware sources are checked once by Detect; Refresh reads every present
// source and caches the result. Value never touches hardware.
type Reader struct {
	registry *Registry
	drivers  map[string]Hardware
	present  map[string]bool
	cache    map[string]cachedSample
	light    float64
	logger   Logger
}

// NewReader creates a reader over the sensors of registry and the given
// hardware sources. A later source with the same Type replaces an earlier one.
func NewReader(registry *Registry, hardware ...Hardware) *Reader {
	r := &Reader{
		registry: registry,
		drivers:  make(map[string]Hardware, len(hardware)),
		present:  make(map[string]bool, len(hardware)),
		cache:    make(map[string]cachedSample, len(hardware)),
		light:    1,
		logger:   noopLogger{},
	}
	for _, hw := range hardware {
		r.drivers[hw.Type()] = hw
	}
	return r
}

// SetLogger sets the logger for the reader.
func (r *Reader) SetLogger(logger Logger) {
	r.logger = logger
}

// SetLightFactor sets the multiplier applied to raw light readings.
// Non-positive factors are ignored.
func (r *Reader) SetLightFactor(f float64) {
	if f > 0 {
		r.light = f
	}
}

// Detect checks which hardware sources answer and returns how many did.
func (r *Reader) Detect(ctx context.Context) int {
	found := 0
	for name, hw := range r.drivers {
		err := hw.Detect(ctx)
		r.present[name] = err == nil
		if err != nil {
			r.logger.Warn("sensor hardware not found", "hardware", name, "error", err)
			continue
		}
		r.logger.Info("sensor hardware found", "hardware", name)
		found++
	}
	return found
}

// Connected reports whether the hardware source was detected by Detect.
// Calculated sensors are always connected.
func (r *Reader) Connected(hardwareType string) bool {
	if hardwareType == HardwareCalculated {
		return true
	}
	return r.present[hardwareType]
}

// Hardware returns the detected hardware tags.
func (r *Reader) Hardware() []string {
	var out []string
	for name, ok := range r.present {
		if ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Refresh reads every detected hardware source once. A failed read marks
// that source's cache invalid until the next successful read.
func (r *Reader) Refresh(ctx context.Context) {
	for name, hw := range r.drivers {
		if !r.present[name] {
			continue
		}
		sample, err := hw.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger.Warn("sensor read failed", "hardware", name, "error", err)
			}
			r.cache[name] = cachedSample{valid: false}
			continue
		}
		r.cache[name] = cachedSample{values: sample, valid: true}
	}
}

// Value returns the latest value for the logical sensor. ok is false when
// the sensor is unknown, its hardware is absent or its last read failed.
func (r *Reader) Value(sensorID string) (float64, bool) {
	s, ok := r.registry.Get(sensorID)
	if !ok {
		return 0, false
	}
	return r.value(s)
}

// Raw returns the light sensor's value before calibration. ok is false for
// sensors that are not light sensors or have no reading.
func (r *Reader) Raw(sensorID string) (float64, bool) {
	s, ok := r.registry.Get(sensorID)
	if !ok || s.Type != KindLight {
		return 0, false
	}
	return r.hardwareValue(s)
}

func (r *Reader) value(s Sensor) (float64, bool) {
	if s.Derived() {
		return r.derived(s)
	}
	v, ok := r.hardwareValue(s)
	if ok && s.Type == KindLight {
		v *= r.light
	}
	return v, ok
}

func (r *Reader) hardwareValue(s Sensor) (float64, bool) {
	cached, ok := r.cache[s.HardwareType]
	if !ok || !cached.valid {
		return 0, false
	}
	v, ok := cached.values[s.Type]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (r *Reader) derived(s Sensor) (float64, bool) {
	if s.Type != KindVPD {
		return 0, false
	}
	resolve := func(id string) (float64, bool) {
		src, ok := r.registry.Get(id)
		if !ok || src.Derived() {
			return 0, false
		}
		return r.value(src)
	}
	t, ok := resolve(s.TempSourceID)
	if !ok {
		return 0, false
	}
	h, ok := resolve(s.HumSourceID)
	if !ok {
		return 0, false
	}
	return VPD(t, h)
}

// Snapshot returns a reading for every sensor with a valid value, in
// catalog order.
func (r *Reader) Snapshot() []Reading {
	var out []Reading
	for _, s := range r.registry.List() {
		if v, ok := r.value(s); ok {
			out = append(out, Reading{ID: s.ID, Type: s.Type, Value: v})
		}
	}
	return out
}
