package sensor

// Kind is the measured quantity of a logical sensor.
type Kind string

// Supported sensor kinds.
const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindCO2         Kind = "co2"
	KindLight       Kind = "light"
	KindVPD         Kind = "vpd"
)

// Hardware source tags.
const (
	HardwareSHT3x      = "sht3x"
	HardwareSHT4x      = "sht4x"
	HardwareSCD4x      = "scd4x"
	HardwareAS7341     = "as7341"
	HardwareSimulated  = "simulated"
	HardwareCalculated = "calculated"
)

var validKinds = map[Kind]bool{
	KindTemperature: true,
	KindHumidity:    true,
	KindCO2:         true,
	KindLight:       true,
	KindVPD:         true,
}

// hardwareKinds lists the kinds each hardware source can measure.
var hardwareKinds = map[string][]Kind{
	HardwareSHT3x:     {KindTemperature, KindHumidity},
	HardwareSHT4x:     {KindTemperature, KindHumidity},
	HardwareSCD4x:     {KindTemperature, KindHumidity, KindCO2},
	HardwareAS7341:    {KindLight},
	HardwareSimulated: {KindTemperature, KindHumidity, KindCO2, KindLight},
}

var defaultUnits = map[Kind]string{
	KindTemperature: "°C",
	KindHumidity:    "%",
	KindCO2:         "ppm",
	KindLight:       "µmol/m²/s",
	KindVPD:         "kPa",
}

// Sensor is a configured logical sensor as stored in /sensors.json.
type Sensor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         Kind   `json:"type"`
	Unit         string `json:"unit"`
	HardwareType string `json:"hardwareType"`
	Address      string `json:"address,omitempty"`
	TempSourceID string `json:"tempSourceId,omitempty"`
	HumSourceID  string `json:"humSourceId,omitempty"`
}

// Derived reports whether the sensor is computed from other sensors.
func (s Sensor) Derived() bool {
	return s.HardwareType == HardwareCalculated
}

// References reports whether s is derived from the sensor with the given ID.
func (s Sensor) References(id string) bool {
	return s.Derived() && (s.TempSourceID == id || s.HumSourceID == id)
}

// Patch carries a partial sensor update. Nil fields are left unchanged.
type Patch struct {
	Name         *string `json:"name,omitempty"`
	Type         *Kind   `json:"type,omitempty"`
	Unit         *string `json:"unit,omitempty"`
	HardwareType *string `json:"hardwareType,omitempty"`
	Address      *string `json:"address,omitempty"`
	TempSourceID *string `json:"tempSourceId,omitempty"`
	HumSourceID  *string `json:"humSourceId,omitempty"`
}

// Apply returns a copy of s with the patch applied.
func (p Patch) Apply(s Sensor) Sensor {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Unit != nil {
		s.Unit = *p.Unit
	}
	if p.HardwareType != nil {
		s.HardwareType = *p.HardwareType
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.TempSourceID != nil {
		s.TempSourceID = *p.TempSourceID
	}
	if p.HumSourceID != nil {
		s.HumSourceID = *p.HumSourceID
	}
	return s
}

// Reading is one valid value produced by the Reader.
type Reading struct {
	ID    string  `json:"id"`
	Type  Kind    `json:"type"`
	Value float64 `json:"value"`
}
