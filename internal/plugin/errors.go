package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin id is not registered.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNilPlugin is returned when a nil plugin or manifest is registered.
	ErrNilPlugin = errors.New("plugin is nil")

	// ErrNoManifest is returned when a plugin directory has no manifest file.
	ErrNoManifest = errors.New("no manifest.json or manifest.yaml found")

	// ErrDuplicatePlugin is returned when discovery finds the same id twice.
	ErrDuplicatePlugin = errors.New("duplicate plugin id")

	// ErrInvalidManifest matches every ValidationError via errors.Is.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// ValidationError collects every violation found in a single manifest.
type ValidationError struct {
	Source     string
	Violations []string

	// format is set when the input was not an object at all.
	format bool
}

func (e *ValidationError) Error() string {
	if e.format {
		return fmt.Sprintf("Invalid manifest format in %s: must be a JSON object", e.Source)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Invalid plugin manifest in %s:", e.Source)
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v)
	}
	return b.String()
}

// Is reports whether target is ErrInvalidManifest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidManifest
}

// Hook names used in LifecycleError.
const (
	HookStartup = "onStartup"
	HookUnload  = "onUnload"
)

// LifecycleError wraps a failure raised by a plugin lifecycle hook.
type LifecycleError struct {
	PluginID string
	Hook     string
	Err      error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("plugin %q %s: %v", e.PluginID, e.Hook, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// LoadError records a plugin that could not be loaded during discovery.
type LoadError struct {
	Path     string
	PluginID string
	Err      error
}

func (e *LoadError) Error() string {
	if e.PluginID != "" {
		return fmt.Sprintf("load plugin %s (%s): %v", e.PluginID, e.Path, e.Err)
	}
	return fmt.Sprintf("load plugin %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
