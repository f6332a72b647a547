package sensor

import (
	"fmt"
	"regexp"
	"slices"
)

// idPattern keeps IDs safe for use in history file names.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateID checks that id can be used as a sensor identifier.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: id %q must be 1-64 characters of letters, digits, '.', '_' or '-'", ErrInvalidSensor, id)
	}
	return nil
}

// normalise fills defaults and clears fields that do not apply.
func normalise(s Sensor) Sensor {
	if s.Unit == "" {
		s.Unit = defaultUnits[s.Type]
	}
	if s.Type == KindVPD && s.HardwareType == "" {
		s.HardwareType = HardwareCalculated
	}
	if !s.Derived() {
		s.TempSourceID = ""
		s.HumSourceID = ""
	}
	return s
}

// validateSelf checks the fields of one sensor in isolation.
func validateSelf(s Sensor) error {
	if err := ValidateID(s.ID); err != nil {
		return err
	}
	if !validKinds[s.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSensor, s.Type)
	}

	if s.Derived() {
		if s.Type != KindVPD {
			return fmt.Errorf("%w: calculated sensors must be of type vpd", ErrInvalidSensor)
		}
		return nil
	}

	if s.Type == KindVPD {
		return fmt.Errorf("%w: vpd sensors must use hardwareType calculated", ErrInvalidSensor)
	}
	kinds, ok := hardwareKinds[s.HardwareType]
	if !ok {
		return fmt.Errorf("%w: unknown hardwareType %q", ErrInvalidSensor, s.HardwareType)
	}
	if !slices.Contains(kinds, s.Type) {
		return fmt.Errorf("%w: %s does not measure %s", ErrInvalidSensor, s.HardwareType, s.Type)
	}
	return nil
}

// validateSources checks that a derived sensor points at existing
// hardware-bound sensors of the right kinds.
func validateSources(s Sensor, lookup func(id string) (Sensor, bool)) error {
	if !s.Derived() {
		return nil
	}
	check := func(field, id string, want Kind) error {
		if id == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidSource, field)
		}
		if id == s.ID {
			return fmt.Errorf("%w: %s references itself", ErrInvalidSource, field)
		}
		src, ok := lookup(id)
		if !ok {
			return fmt.Errorf("%w: %s %q not found", ErrInvalidSource, field, id)
		}
		if src.Derived() {
			return fmt.Errorf("%w: %s %q is itself derived", ErrInvalidSource, field, id)
		}
		if src.Type != want {
			return fmt.Errorf("%w: %s %q is %s, want %s", ErrInvalidSource, field, id, src.Type, want)
		}
		return nil
	}
	if err := check("tempSourceId", s.TempSourceID, KindTemperature); err != nil {
		return err
	}
	return check("humSourceId", s.HumSourceID, KindHumidity)
}

// validateSet checks every sensor of a complete catalog.
func validateSet(sensors []Sensor) error {
	byID := make(map[string]Sensor, len(sensors))
	for _, s := range sensors {
		if _, dup := byID[s.ID]; dup {
			return fmt.Errorf("%w: %q", ErrSensorExists, s.ID)
		}
		byID[s.ID] = s
	}
	lookup := func(id string) (Sensor, bool) {
		s, ok := byID[id]
		return s, ok
	}
	for _, s := range sensors {
		if err := validateSelf(s); err != nil {
			return fmt.Errorf("sensor %q: %w", s.ID, err)
		}
		if err := validateSources(s, lookup); err != nil {
			return fmt.Errorf("sensor %q: %w", s.ID, err)
		}
	}
	return nil
}
