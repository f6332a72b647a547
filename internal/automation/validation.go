package automation

import (
	"fmt"
	"regexp"
)

const maxNameLength = 64

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Validate checks a rule in isolation.
func Validate(r Rule) error {
	if !idPattern.MatchString(r.ID) {
		return fmt.Errorf("%w: id %q", ErrInvalidRule, r.ID)
	}
	if len(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidRule, maxNameLength)
	}
	if r.SensorID == "" {
		return fmt.Errorf("%w: sensorId is required", ErrInvalidRule)
	}
	if !r.Operator.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, r.Operator)
	}
	if !r.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, r.Action)
	}
	if r.MinRunTimeMs < 0 {
		return fmt.Errorf("%w: minRunTimeMs must not be negative", ErrInvalidRule)
	}
	if r.DeviceID == "" {
		return fmt.Errorf("%w: deviceId is required", ErrInvalidRule)
	}
	if r.DeviceMethod == "" || r.DeviceTarget == "" {
		return fmt.Errorf("%w: device %q has no method or target", ErrInvalidRule, r.DeviceID)
	}
	return nil
}

// conflicts reports whether a and b are both enabled and drive the same
// device in opposite directions.
func conflicts(a, b Rule) bool {
	return a.ID != b.ID &&
		a.Enabled && b.Enabled &&
		a.DeviceID == b.DeviceID &&
		a.Action != b.Action
}

// checkConflicts returns ErrConflictingRule if r conflicts with any of rules.
func checkConflicts(r Rule, rules []Rule) error {
	for _, o := range rules {
		if conflicts(r, o) {
			return fmt.Errorf("%w: %q and %q both drive device %q", ErrConflictingRule, r.ID, o.ID, r.DeviceID)
		}
	}
	return nil
}
