// Package execctx builds the execution context handed to every command.
package execctx

import (
	"sync"

	"github.com/dshills/keyed/internal/theme"
)

// Environment describes the host at the moment of invocation.
type Environment struct {
	Theme    theme.Snapshot `json:"theme"`
	Platform string         `json:"platform"`
	Debug    bool           `json:"debug"`
}

// Context is passed to every command execution regardless of mode.
type Context struct {
	Environment Environment `json:"environment"`
}

// Map returns the context as nested maps, the shape script handlers see.
func (c Context) Map() map[string]any {
	colors := make(map[string]any, len(c.Environment.Theme.Colors))
	for k, v := range c.Environment.Theme.Colors {
		colors[k] = v
	}
	t := c.Environment.Theme
	return map[string]any{
		"environment": map[string]any{
			"theme": map[string]any{
				"id":          t.ID,
				"name":        t.Name,
				"author":      t.Author,
				"version":     t.Version,
				"description": t.Description,
				"type":        t.Type,
				"colors":      colors,
			},
			"platform": c.Environment.Platform,
			"debug":    c.Environment.Debug,
		},
	}
}

// Builder assembles a fresh Context on every call. Nothing is cached, so a
// theme switch between two invocations is always observed.
type Builder struct {
	themes   theme.Provider
	platform string

	mu    sync.RWMutex
	debug bool
}

// NewBuilder creates a builder reading the theme from themes.
// A nil provider yields an empty theme snapshot.
func NewBuilder(themes theme.Provider, platform string, debug bool) *Builder {
	return &Builder{themes: themes, platform: platform, debug: debug}
}

// Build constructs the context for one invocation.
func (b *Builder) Build() Context {
	var snap theme.Snapshot
	if b.themes != nil {
		snap = b.themes.Current()
	}
	return Context{
		Environment: Environment{
			Theme:    snap,
			Platform: b.platform,
			Debug:    b.Debug(),
		},
	}
}

// Get is Build under the name the platform capability surface uses.
func (b *Builder) Get() Context {
	return b.Build()
}

// Platform returns the platform identifier.
func (b *Builder) Platform() string {
	return b.platform
}

// Debug reports the debug flag.
func (b *Builder) Debug() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.debug
}

// SetDebug sets the debug flag.
func (b *Builder) SetDebug(debug bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debug = debug
}

// ToggleDebug flips the debug flag and returns the new value.
func (b *Builder) ToggleDebug() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debug = !b.debug
	return b.debug
}
