package automation

import (
	"slices"
	"time"
)

// SetOverride suspends every rule on the device for d, replacing any
// existing deadline. A non-positive d selects DefaultOverride.
func (e *Engine) SetOverride(deviceID string, d time.Duration) {
	if d <= 0 {
		d = DefaultOverride
	}
	e.overrides[deviceID] = e.clock.Now() + d
	e.logger.Info("manual override set", "device_id", deviceID, "duration", d.String())
}

// ClearOverride removes the device's override and re-seeds its rules from
// the device state. It reports whether an override was present.
func (e *Engine) ClearOverride(deviceID string) bool {
	if _, ok := e.overrides[deviceID]; !ok {
		return false
	}
	delete(e.overrides, deviceID)
	e.syncToDevice(deviceID)
	e.logger.Info("manual override cleared", "device_id", deviceID)
	return true
}

// ClearExpiredOverrides removes every override whose deadline has passed,
// re-seeds the affected rules, and returns the device IDs in sorted order.
func (e *Engine) ClearExpiredOverrides() []string {
	now := e.clock.Now()
	var expired []string
	for id, deadline := range e.overrides {
		if now >= deadline {
			expired = append(expired, id)
		}
	}
	slices.Sort(expired)

	for _, id := range expired {
		delete(e.overrides, id)
		e.syncToDevice(id)
		e.logger.Info("manual override expired", "device_id", id)
	}
	return expired
}

// IsOverridden reports whether the device has an unexpired override.
func (e *Engine) IsOverridden(deviceID string) bool {
	return e.overriddenAt(deviceID, e.clock.Now())
}

// OverrideRemaining returns the time left on the device's override, or 0.
func (e *Engine) OverrideRemaining(deviceID string) time.Duration {
	deadline, ok := e.overrides[deviceID]
	if !ok {
		return 0
	}
	if left := deadline - e.clock.Now(); left > 0 {
		return left
	}
	return 0
}

func (e *Engine) overriddenAt(deviceID string, now time.Duration) bool {
	deadline, ok := e.overrides[deviceID]
	return ok && now < deadline
}

// syncToDevice sets each rule on the device to Active exactly when the
// device currently sits in that rule's triggered state, and lifts the
// minimum run time so the next evaluation can act.
func (e *Engine) syncToDevice(deviceID string) {
	info, ok := e.devices.Device(deviceID)
	if !ok {
		return
	}
	for _, r := range e.rules {
		if r.DeviceID != deviceID {
			continue
		}
		e.triggered[r.ID] = info.IsOn == r.ActionOn()
		delete(e.lastChange, r.ID)
	}
}

// ActiveOverrides returns the number of unexpired overrides.
func (e *Engine) ActiveOverrides() int {
	now := e.clock.Now()
	n := 0
	for id := range e.overrides {
		if e.overriddenAt(id, now) {
			n++
		}
	}
	return n
}
