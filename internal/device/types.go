package device

// ControlMode tells clients whether rules drive a device.
type ControlMode string

// Control modes.
const (
	ModeManual    ControlMode = "manual"
	ModeAutomatic ControlMode = "automatic"
)

// Device is an addressable outlet as sent to clients.
type Device struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	ControlMethod string      `json:"controlMethod"`
	IPAddress     string      `json:"ipAddress"`
	ControlMode   ControlMode `json:"controlMode"`
	IsOn          bool        `json:"isOn"`
}

// Record is the persisted form of a Device; runtime fields are omitted.
type Record struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	ControlMethod string `json:"controlMethod"`
	IPAddress     string `json:"ipAddress"`
}

// Record returns the persisted form of d.
func (d Device) Record() Record {
	return Record{
		ID:            d.ID,
		Name:          d.Name,
		Type:          d.Type,
		ControlMethod: d.ControlMethod,
		IPAddress:     d.IPAddress,
	}
}

// Device returns a manual, off device built from the record.
func (r Record) Device() Device {
	return Device{
		ID:            r.ID,
		Name:          r.Name,
		Type:          r.Type,
		ControlMethod: r.ControlMethod,
		IPAddress:     r.IPAddress,
		ControlMode:   ModeManual,
	}
}

// Patch carries a partial device update. Nil fields are left unchanged.
type Patch struct {
	Name          *string `json:"name,omitempty"`
	Type          *string `json:"type,omitempty"`
	ControlMethod *string `json:"controlMethod,omitempty"`
	IPAddress     *string `json:"ipAddress,omitempty"`
}

// Apply returns a copy of d with the patch applied.
func (p Patch) Apply(d Device) Device {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.ControlMethod != nil {
		d.ControlMethod = *p.ControlMethod
	}
	if p.IPAddress != nil {
		d.IPAddress = *p.IPAddress
	}
	return d
}

// BindingChanged reports whether the patch touches the method or target.
func (p Patch) BindingChanged() bool {
	return p.ControlMethod != nil || p.IPAddress != nil
}
