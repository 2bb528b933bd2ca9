package lua

import "errors"

// Errors for Lua runtime operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrModuleNotFound is returned when no file exists for a handler.
	ErrModuleNotFound = errors.New("lua module not found")

	// ErrNotModule is returned when a file does not return a table or function.
	ErrNotModule = errors.New("lua file must return a table or function")

	// ErrNoExport is returned when calling a name the module does not export.
	ErrNoExport = errors.New("lua module has no such export")

	// ErrUnavailable is returned by host functions whose capability is missing.
	ErrUnavailable = errors.New("capability unavailable")
)
