package automation

import (
	"context"
	"time"
)

// Operator is a comparison between a reading and a threshold.
type Operator string

// Supported operators.
const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "="
)

// equalTolerance is the band within which OpEqual matches.
const equalTolerance = 0.1

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual:
		return true
	}
	return false
}

// Action is the device state a rule commands while its condition holds.
type Action string

// Rule actions.
const (
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"
)

// Valid reports whether a is a supported action.
func (a Action) Valid() bool {
	return a == ActionTurnOn || a == ActionTurnOff
}

// Rule is a threshold rule as persisted and sent to clients.
type Rule struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Enabled       bool     `json:"enabled"`
	SensorID      string   `json:"sensorId"`
	Operator      Operator `json:"operator"`
	Threshold     float64  `json:"threshold"`
	ThresholdOff  float64  `json:"thresholdOff"`
	UseHysteresis bool     `json:"useHysteresis"`
	MinRunTimeMs  int64    `json:"minRunTimeMs"`
	DeviceID      string   `json:"deviceId"`
	DeviceMethod  string   `json:"deviceMethod"`
	DeviceTarget  string   `json:"deviceTarget"`
	Action        Action   `json:"action"`
}

// ActionOn reports whether the rule turns its device on when triggered.
func (r Rule) ActionOn() bool {
	return r.Action == ActionTurnOn
}

// MinRunTime returns MinRunTimeMs as a duration.
func (r Rule) MinRunTime() time.Duration {
	return time.Duration(r.MinRunTimeMs) * time.Millisecond
}

// Patch carries a rule as sent by a client. On add, missing fields take
// their defaults; on update, nil fields are left unchanged and ID is ignored.
type Patch struct {
	ID            *string   `json:"id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	Enabled       *bool     `json:"enabled,omitempty"`
	SensorID      *string   `json:"sensorId,omitempty"`
	Operator      *Operator `json:"operator,omitempty"`
	Threshold     *float64  `json:"threshold,omitempty"`
	ThresholdOff  *float64  `json:"thresholdOff,omitempty"`
	UseHysteresis *bool     `json:"useHysteresis,omitempty"`
	MinRunTimeMs  *int64    `json:"minRunTimeMs,omitempty"`
	DeviceID      *string   `json:"deviceId,omitempty"`
	DeviceMethod  *string   `json:"deviceMethod,omitempty"`
	DeviceTarget  *string   `json:"deviceTarget,omitempty"`
	Action        *Action   `json:"action,omitempty"`
}

// Build returns a new rule from the patch. Defaults: enabled, operator ">",
// action turn_on, and thresholdOff equal to threshold.
func (p Patch) Build() Rule {
	r := Rule{
		Enabled:  true,
		Operator: OpGreater,
		Action:   ActionTurnOn,
	}
	if p.ID != nil {
		r.ID = *p.ID
	}
	r = p.Apply(r)
	if p.ThresholdOff == nil {
		r.ThresholdOff = r.Threshold
	}
	return r
}

// Stored returns the rule a persisted record describes. It differs from
// Build only in that a record without "enabled" loads disabled.
func (p Patch) Stored() Rule {
	r := p.Build()
	if p.Enabled == nil {
		r.Enabled = false
	}
	return r
}

// Apply returns a copy of r with the patch applied. ID is not touched.
func (p Patch) Apply(r Rule) Rule {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.SensorID != nil {
		r.SensorID = *p.SensorID
	}
	if p.Operator != nil {
		r.Operator = *p.Operator
	}
	if p.Threshold != nil {
		r.Threshold = *p.Threshold
	}
	if p.ThresholdOff != nil {
		r.ThresholdOff = *p.ThresholdOff
	}
	if p.UseHysteresis != nil {
		r.UseHysteresis = *p.UseHysteresis
	}
	if p.MinRunTimeMs != nil {
		r.MinRunTimeMs = *p.MinRunTimeMs
	}
	if p.DeviceID != nil {
		r.DeviceID = *p.DeviceID
	}
	if p.DeviceMethod != nil {
		r.DeviceMethod = *p.DeviceMethod
	}
	if p.DeviceTarget != nil {
		r.DeviceTarget = *p.DeviceTarget
	}
	if p.Action != nil {
		r.Action = *p.Action
	}
	return r
}

// Readings maps sensor IDs to their current valid values. A sensor
// without a valid reading is absent.
type Readings map[string]float64

// MissingReading selects how a rule treats a sensor with no reading.
type MissingReading string

// Missing reading policies.
const (
	// MissingAsZero compares a missing reading as 0.
	MissingAsZero MissingReading = "zero"

	// MissingSkip skips the rule and leaves its state untouched.
	MissingSkip MissingReading = "skip"
)

// Event reports a device state change made by a rule.
type Event struct {
	RuleID   string
	DeviceID string
	Method   string
	Target   string
	On       bool
}

// DeviceInfo is what the engine needs to know about a device.
type DeviceInfo struct {
	ID     string
	Method string
	Target string
	IsOn   bool
}

// DeviceRegistry is the interface the engine needs from the device catalog.
type DeviceRegistry interface {
	// Device returns the binding and cached state of a device.
	Device(id string) (DeviceInfo, bool)

	// SetState records a commanded state.
	SetState(id string, on bool) bool
}

// Actuator switches outlets.
type Actuator interface {
	Control(ctx context.Context, method, target string, on bool) bool
}
