package dispatch

import "errors"

var (
	// ErrNoExecutor indicates an entry with nothing to execute.
	ErrNoExecutor = errors.New("dispatch: entry has no executor")

	// ErrNoComponent indicates a view or inline command returned no
	// component.
	ErrNoComponent = errors.New("dispatch: command returned no component")
)
