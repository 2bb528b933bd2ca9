package plugin

import "time"

// State is the load state of a registered plugin.
type State int

// Plugin load states.
const (
	// StateLoading - the plugin is being loaded.
	StateLoading State = iota

	// StateLoaded - the plugin is registered and usable.
	StateLoaded

	// StateError - a lifecycle hook failed; the plugin stays registered.
	StateError

	// StateDisabled - the plugin is registered but hidden.
	StateDisabled
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Status is a plugin's load status as tracked by the Registry.
type Status struct {
	State    State
	Error    string
	LoadedAt time.Time
}

// Loaded returns a loaded status stamped with now.
func Loaded(now time.Time) Status {
	return Status{State: StateLoaded, LoadedAt: now}
}

// Failed returns an error status carrying msg verbatim.
func Failed(msg string) Status {
	return Status{State: StateError, Error: msg}
}
