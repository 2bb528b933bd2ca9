package plugin

import "context"

// Hook is a plugin lifecycle callback.
type Hook func(ctx context.Context) error

// Plugin pairs a validated manifest with optional lifecycle hooks.
type Plugin struct {
	Manifest *Manifest

	// OnStartup runs in the background after registration.
	OnStartup Hook

	// OnUnload runs when the plugin is unregistered or the registry is
	// cleared. Failures are logged only.
	OnUnload Hook

	// Source labels where the plugin came from (bundled, user, development).
	Source string
}

// ID returns the manifest id.
func (p *Plugin) ID() string {
	if p == nil || p.Manifest == nil {
		return ""
	}
	return p.Manifest.ID
}

// Dir returns the plugin's directory, empty for compiled-in plugins.
func (p *Plugin) Dir() string {
	if p == nil || p.Manifest == nil {
		return ""
	}
	return p.Manifest.dir
}
