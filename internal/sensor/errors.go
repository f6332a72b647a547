package sensor

import "errors"

// Domain errors for the sensor package.
var (
	// ErrSensorNotFound is returned when a sensor ID does not exist.
	ErrSensorNotFound = errors.New("sensor: not found")

	// ErrSensorExists is returned when adding a sensor with an ID that already exists.
	ErrSensorExists = errors.New("sensor: already exists")

	// ErrInvalidSensor is returned when sensor validation fails.
	ErrInvalidSensor = errors.New("sensor: invalid")

	// ErrInvalidSource is returned when a derived sensor references a
	// missing, derived or wrong-kind sensor.
	ErrInvalidSource = errors.New("sensor: invalid derived source")

	// ErrSensorInUse is returned when removing a sensor that a derived sensor references.
	ErrSensorInUse = errors.New("sensor: referenced by derived sensor")
)
