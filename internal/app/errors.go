package app

import (
	"errors"
	"fmt"
)

// Launcher errors.
var (
	// ErrAlreadyRunning indicates Start was called twice.
	ErrAlreadyRunning = errors.New("launcher already running")

	// ErrNotRunning indicates the launcher has not been started.
	ErrNotRunning = errors.New("launcher not running")

	// ErrEntryNotFound indicates no visible entry has the requested id.
	ErrEntryNotFound = errors.New("entry not found")
)

// InitError reports a component that failed to initialize.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
