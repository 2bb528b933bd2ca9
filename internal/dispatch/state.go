package dispatch

import "github.com/dshills/keyed/internal/command"

// State is the presentation state after an activation.
type State int

const (
	// StateIdle shows the result list.
	StateIdle State = iota
	// StateNoView means a no-view command was started.
	StateNoView
	// StateView shows a view command's document.
	StateView
	// StateInline shows an inline command's document in place.
	StateInline
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNoView:
		return "no-view-dispatch"
	case StateView:
		return "view-dispatch"
	case StateInline:
		return "inline-render"
	default:
		return "unknown"
	}
}

// RootRoute is the route of the result list.
const RootRoute = "/"

// ViewRoute returns the route of a view command.
func ViewRoute(entry command.Entry) string {
	if entry.PluginID == "" {
		return "/builtin/" + entry.CommandName
	}
	return "/plugin/" + entry.PluginID + "/" + entry.CommandName
}
