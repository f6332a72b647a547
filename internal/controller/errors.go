package controller

import "errors"

var (
	// ErrStopped is returned by Do once the loop has exited.
	ErrStopped = errors.New("controller: stopped")

	// ErrBusy is returned when the task queue is full.
	ErrBusy = errors.New("controller: task queue full")

	// ErrInvalidBackup is returned when a restore document is malformed.
	ErrInvalidBackup = errors.New("controller: invalid backup")
)
