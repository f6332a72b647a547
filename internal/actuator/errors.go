package actuator

import "errors"

var (
	// ErrUnknownMethod is returned for a control method with no driver.
	ErrUnknownMethod = errors.New("actuator: unknown control method")

	// ErrInvalidTarget is returned when the target cannot be used by the driver.
	ErrInvalidTarget = errors.New("actuator: invalid target")

	// ErrRejected is returned when the outlet answered with a non-200 status.
	ErrRejected = errors.New("actuator: command rejected")
)
