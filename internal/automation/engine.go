package automation

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/growctl/internal/clock"
)

// DefaultEvalInterval is the minimum spacing between evaluations.
const DefaultEvalInterval = 2 * time.Second

// DefaultOverride is how long a manual command suspends rules.
const DefaultOverride = 5 * time.Minute

const eventBuffer = 32

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

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	EvalInterval   time.Duration
	MissingReading MissingReading
}

// Engine holds the rule set in insertion order together with the
// per-rule trigger state and the active manual overrides.
//
// Every rule mutation is written through the Repository. A failed save is
// logged and the in-memory rule set stays authoritative.
//
// Thread Safety:
//   - Engine is not safe for concurrent use. The controller loop owns it.
//   - Events may be received from any goroutine.
type Engine struct {
	repo     Repository
	devices  DeviceRegistry
	actuator Actuator
	clock    clock.Clock
	logger   Logger

	evalInterval time.Duration
	missing      MissingReading

	rules []Rule

	// triggered holds the condition result of the previous evaluation.
	// An absent entry is false.
	triggered map[string]bool

	// lastChange holds when each rule last switched its device. An
	// absent entry means the minimum run time does not apply.
	lastChange map[string]time.Duration

	// overrides maps device IDs to the monotonic deadline of their override.
	overrides map[string]time.Duration

	lastEval  time.Duration
	evaluated bool

	events chan Event
}

// NewEngine creates an engine with no rules. Call Load to read persisted rules.
//
// Parameters:
//   - repo: Persists the rule set (rules.json in production)
//   - devices: Resolves device bindings and the last known outlet state
//   - act: Switches outlets; each call may block up to the actuator timeout
//   - clk: Monotonic time source for the evaluation gate, debounce and overrides
//   - opts: Evaluation interval and missing-reading policy; zero values take defaults
//
// Returns:
//   - *Engine: Engine ready for Load
func NewEngine(repo Repository, devices DeviceRegistry, act Actuator, clk clock.Clock, opts Options) *Engine {
	if opts.EvalInterval <= 0 {
		opts.EvalInterval = DefaultEvalInterval
	}
	if opts.MissingReading == "" {
		opts.MissingReading = MissingAsZero
	}
	return &Engine{
		repo:         repo,
		devices:      devices,
		actuator:     act,
		clock:        clk,
		logger:       noopLogger{},
		evalInterval: opts.EvalInterval,
		missing:      opts.MissingReading,
		triggered:    make(map[string]bool),
		lastChange:   make(map[string]time.Duration),
		overrides:    make(map[string]time.Duration),
		events:       make(chan Event, eventBuffer),
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Events returns the channel of device state changes made by rules.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Load replaces the rule set with the persisted rules. Invalid and
// duplicate rules are dropped; a rule conflicting with an earlier enabled
// rule is loaded disabled.
func (e *Engine) Load() error {
	rules, err := e.repo.Load()
	if err != nil {
		return err
	}

	e.rules = make([]Rule, 0, len(rules))
	e.resetState()
	for _, r := range rules {
		if e.index(r.ID) >= 0 {
			e.logger.Warn("dropping duplicate rule", "rule_id", r.ID)
			continue
		}
		e.resolve(&r)
		if err := Validate(r); err != nil {
			e.logger.Warn("dropping invalid rule", "rule_id", r.ID, "error", err)
			continue
		}
		if err := checkConflicts(r, e.rules); err != nil {
			e.logger.Warn("disabling conflicting rule", "rule_id", r.ID, "error", err)
			r.Enabled = false
		}
		e.rules = append(e.rules, r)
	}

	e.logger.Info("rules loaded", "count", len(e.rules))
	return nil
}

// Add builds a rule from p and appends it. An empty ID is replaced with a
// generated one. The device binding is resolved from the device registry
// when the device is known.
func (e *Engine) Add(p Patch) (Rule, error) {
	r := p.Build()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if e.index(r.ID) >= 0 {
		return Rule{}, fmt.Errorf("%w: %q", ErrRuleExists, r.ID)
	}
	e.resolve(&r)
	if err := Validate(r); err != nil {
		return Rule{}, err
	}
	if err := checkConflicts(r, e.rules); err != nil {
		return Rule{}, err
	}

	e.rules = append(e.rules, r)
	e.save()
	e.logger.Info("rule added", "rule_id", r.ID, "name", r.Name, "device_id", r.DeviceID)
	return r, nil
}

// Update applies a partial update to the rule with the given ID. Moving a
// rule to another device or sensor resets its trigger state.
func (e *Engine) Update(id string, p Patch) (Rule, error) {
	idx := e.index(id)
	if idx < 0 {
		return Rule{}, fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}

	old := e.rules[idx]
	updated := p.Apply(old)
	e.resolve(&updated)
	if err := Validate(updated); err != nil {
		return Rule{}, err
	}
	if err := checkConflicts(updated, e.rules); err != nil {
		return Rule{}, err
	}

	e.rules[idx] = updated
	if updated.DeviceID != old.DeviceID || updated.SensorID != old.SensorID || !updated.Enabled {
		e.forget(id)
	}
	e.save()
	e.logger.Info("rule updated", "rule_id", id)
	return updated, nil
}

// Remove deletes the rule with the given ID.
func (e *Engine) Remove(id string) error {
	idx := e.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}
	e.rules = append(e.rules[:idx:idx], e.rules[idx+1:]...)
	e.forget(id)
	e.save()
	e.logger.Info("rule removed", "rule_id", id)
	return nil
}

// Toggle flips the enabled flag of the rule. Disabling drops its trigger state.
func (e *Engine) Toggle(id string) (Rule, error) {
	idx := e.index(id)
	if idx < 0 {
		return Rule{}, fmt.Errorf("%w: %q", ErrRuleNotFound, id)
	}

	r := e.rules[idx]
	r.Enabled = !r.Enabled
	if r.Enabled {
		if err := checkConflicts(r, e.rules); err != nil {
			return Rule{}, err
		}
	} else {
		delete(e.triggered, id)
	}

	e.rules[idx] = r
	e.save()
	e.logger.Info("rule toggled", "rule_id", id, "enabled", r.Enabled)
	return r, nil
}

// Replace swaps the whole rule set, as done by a configuration restore.
// All trigger state is reset; overrides are kept.
func (e *Engine) Replace(rules []Rule) error {
	next := make([]Rule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %q", ErrRuleExists, r.ID)
		}
		e.resolve(&r)
		if err := Validate(r); err != nil {
			return fmt.Errorf("rule %q: %w", r.ID, err)
		}
		if err := checkConflicts(r, next); err != nil {
			return err
		}
		seen[r.ID] = true
		next = append(next, r)
	}

	e.rules = next
	e.resetState()
	e.save()
	e.logger.Info("rules replaced", "count", len(next))
	return nil
}

// Get returns the rule with the given ID.
func (e *Engine) Get(id string) (Rule, bool) {
	if idx := e.index(id); idx >= 0 {
		return e.rules[idx], true
	}
	return Rule{}, false
}

// List returns a copy of the rule set in insertion order.
func (e *Engine) List() []Rule {
	return slices.Clone(e.rules)
}

// Count returns the number of rules.
func (e *Engine) Count() int {
	return len(e.rules)
}

// IsActive reports whether the rule's condition held at the previous evaluation.
func (e *Engine) IsActive(id string) bool {
	return e.triggered[id]
}

// IsDeviceUsedByEnabledRule reports whether any enabled rule drives the device.
func (e *Engine) IsDeviceUsedByEnabledRule(deviceID string) bool {
	for _, r := range e.rules {
		if r.Enabled && r.DeviceID == deviceID {
			return true
		}
	}
	return false
}

// RemoveRulesForDevice deletes every rule that drives the device and
// returns how many were removed.
func (e *Engine) RemoveRulesForDevice(deviceID string) int {
	kept := e.rules[:0]
	removed := 0
	for _, r := range e.rules {
		if r.DeviceID == deviceID {
			e.forget(r.ID)
			removed++
			e.logger.Info("removing rule for deleted device", "rule_id", r.ID, "device_id", deviceID)
			continue
		}
		kept = append(kept, r)
	}
	e.rules = kept
	delete(e.overrides, deviceID)
	if removed > 0 {
		e.save()
	}
	return removed
}

// RebindDevice points every rule on the device at a new method and target
// and returns how many rules changed.
func (e *Engine) RebindDevice(deviceID, method, target string) int {
	changed := 0
	for i := range e.rules {
		r := &e.rules[i]
		if r.DeviceID != deviceID || (r.DeviceMethod == method && r.DeviceTarget == target) {
			continue
		}
		r.DeviceMethod = method
		r.DeviceTarget = target
		changed++
	}
	if changed > 0 {
		e.save()
		e.logger.Info("rules rebound", "device_id", deviceID, "method", method, "rules", changed)
	}
	return changed
}

// Evaluate runs one evaluation pass when the evaluation interval has
// elapsed since the previous pass.
//
// For every enabled, non-overridden rule it compares the sensor reading
// against the rule threshold (or thresholdOff while hysteresis holds),
// skips rules whose device changed state less than minRunTimeMs ago, and
// commands the outlet when the desired state differs from the last one.
//
// Parameters:
//   - ctx: Passed to every outlet command
//   - readings: Latest valid value per sensor ID; missing IDs follow
//     the engine's MissingReading policy
//
// Returns:
//   - bool: true if a pass ran, false if it was gated
func (e *Engine) Evaluate(ctx context.Context, readings Readings) bool {
	now := e.clock.Now()
	if e.evaluated && now-e.lastEval < e.evalInterval {
		return false
	}
	e.lastEval = now
	e.evaluated = true
	e.evaluate(ctx, now, readings)
	return true
}

// ForceEvaluation runs an evaluation pass regardless of the interval.
func (e *Engine) ForceEvaluation(ctx context.Context, readings Readings) {
	e.evaluated = false
	e.Evaluate(ctx, readings)
}

func (e *Engine) evaluate(ctx context.Context, now time.Duration, readings Readings) {
	for i := range e.rules {
		r := e.rules[i]
		if !r.Enabled {
			continue
		}
		if e.overriddenAt(r.DeviceID, now) {
			continue
		}

		value, ok := readings[r.SensorID]
		if !ok {
			if e.missing == MissingSkip {
				continue
			}
			value = 0
		}

		wasActive := e.triggered[r.ID]
		deviceOn := wasActive == r.ActionOn()
		met := conditionMet(r, value, deviceOn)

		if met != wasActive && r.MinRunTimeMs > 0 {
			if last, ok := e.lastChange[r.ID]; ok && now-last < r.MinRunTime() {
				continue
			}
		}

		e.triggered[r.ID] = met

		switch {
		case met && !wasActive:
			e.logger.Info("rule triggered",
				"rule_id", r.ID,
				"sensor_id", r.SensorID,
				"value", value,
				"operator", string(r.Operator),
				"threshold", r.Threshold,
			)
			e.actuate(ctx, now, r, r.ActionOn())
		case !met && wasActive:
			e.logger.Info("rule cleared, reverting device", "rule_id", r.ID, "device_id", r.DeviceID)
			e.actuate(ctx, now, r, !r.ActionOn())
		}
	}
}

// actuate commands the device. Failure leaves the last change instant
// untouched; the trigger state has already been committed.
func (e *Engine) actuate(ctx context.Context, now time.Duration, r Rule, on bool) {
	if !e.actuator.Control(ctx, r.DeviceMethod, r.DeviceTarget, on) {
		e.logger.Warn("rule actuation failed", "rule_id", r.ID, "device_id", r.DeviceID, "on", on)
		return
	}
	e.devices.SetState(r.DeviceID, on)
	e.lastChange[r.ID] = now

	ev := Event{RuleID: r.ID, DeviceID: r.DeviceID, Method: r.DeviceMethod, Target: r.DeviceTarget, On: on}
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("dropping device event", "device_id", r.DeviceID)
	}
}

// conditionMet evaluates the rule's comparison. While hysteresis applies
// and the device is in its triggered state, the reading is compared
// strictly against ThresholdOff with the same direction as the operator.
func conditionMet(r Rule, value float64, deviceOn bool) bool {
	if r.UseHysteresis && deviceOn {
		switch r.Operator {
		case OpGreater, OpGreaterEqual:
			return value > r.ThresholdOff
		case OpLess, OpLessEqual:
			return value < r.ThresholdOff
		}
	} else {
		switch r.Operator {
		case OpGreater:
			return value > r.Threshold
		case OpGreaterEqual:
			return value >= r.Threshold
		case OpLess:
			return value < r.Threshold
		case OpLessEqual:
			return value <= r.Threshold
		}
	}
	if r.Operator == OpEqual {
		return math.Abs(value-r.Threshold) < equalTolerance
	}
	return false
}

// resolve copies the device binding into the rule when the device is known.
func (e *Engine) resolve(r *Rule) {
	if info, ok := e.devices.Device(r.DeviceID); ok {
		r.DeviceMethod = info.Method
		r.DeviceTarget = info.Target
	}
}

func (e *Engine) forget(id string) {
	delete(e.triggered, id)
	delete(e.lastChange, id)
}

func (e *Engine) resetState() {
	clear(e.triggered)
	clear(e.lastChange)
}

func (e *Engine) index(id string) int {
	for i := range e.rules {
		if e.rules[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) save() {
	if err := e.repo.Save(e.List()); err != nil {
		e.logger.Error("failed to save rules", "error", err)
	}
}
