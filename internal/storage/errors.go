package storage

import "errors"

var (
	// ErrNotFound is returned when no blob exists at the requested path.
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidPath is returned for paths that are not absolute or that
	// try to escape the store with "..".
	ErrInvalidPath = errors.New("storage: invalid path")

	errWriteFailed = errors.New("storage: write failed")
)
