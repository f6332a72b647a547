package history

import "errors"

var (
	// ErrInvalidRange is returned when a range name is not 12h, 24h or 7d.
	ErrInvalidRange = errors.New("history: invalid range")

	// ErrCorruptBuffer is returned when a persisted buffer does not match
	// the expected layout.
	ErrCorruptBuffer = errors.New("history: corrupt buffer")
)
