package palette

import (
	"slices"
	"strings"
	"sync"

	"github.com/dshills/keyed/internal/command"
)

// EntrySource supplies the registered entries in registration order.
// *command.Registry implements it.
type EntrySource interface {
	Entries() []command.Entry
}

// EnabledChecker reports whether a plugin is enabled.
// *plugin.Registry implements it.
type EnabledChecker interface {
	IsEnabled(pluginID string) bool
}

// Palette aggregates and filters launcher entries.
type Palette struct {
	mu       sync.RWMutex
	source   EntrySource
	enabled  EnabledChecker
	builtins []command.Entry
}

// Option configures a Palette.
type Option func(*Palette)

// WithBuiltins sets entries shown ahead of the registry entries. They are
// always visible.
func WithBuiltins(entries ...command.Entry) Option {
	return func(p *Palette) {
		p.builtins = slices.Clone(entries)
	}
}

// WithEnabledChecker sets the plugin enabled lookup. Without one every
// plugin counts as enabled.
func WithEnabledChecker(ec EnabledChecker) Option {
	return func(p *Palette) {
		p.enabled = ec
	}
}

// New creates a palette over source.
func New(source EntrySource, opts ...Option) *Palette {
	p := &Palette{source: source}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetBuiltins replaces the builtin entries.
func (p *Palette) SetBuiltins(entries []command.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builtins = slices.Clone(entries)
}

// Base returns every visible entry: builtins, then registry entries whose
// plugin is absent or enabled.
func (p *Palette) Base() []command.Entry {
	p.mu.RLock()
	builtins := slices.Clone(p.builtins)
	enabled := p.enabled
	p.mu.RUnlock()

	var registered []command.Entry
	if p.source != nil {
		registered = p.source.Entries()
	}

	result := make([]command.Entry, 0, len(builtins)+len(registered))
	for _, e := range slices.Concat(builtins, registered) {
		if e.PluginID == "" || enabled == nil || enabled.IsEnabled(e.PluginID) {
			result = append(result, e)
		}
	}
	return result
}

// Results returns the visible entries matching query. A blank query
// returns the whole base set.
func (p *Palette) Results(query string) []command.Entry {
	base := p.Base()
	if strings.TrimSpace(query) == "" {
		return base
	}
	return NewFilter(query).Apply(base)
}

// Find looks up a visible entry by id.
func (p *Palette) Find(id string) (command.Entry, bool) {
	for _, e := range p.Base() {
		if e.ID == id {
			return e, true
		}
	}
	return command.Entry{}, false
}

// WithInline puts the active inline entry at the top of results. A copy of
// the same entry further down is dropped.
func WithInline(inline *command.Entry, results []command.Entry) []command.Entry {
	if inline == nil {
		return results
	}
	out := make([]command.Entry, 0, len(results)+1)
	out = append(out, *inline)
	for _, e := range results {
		if e.ID != inline.ID {
			out = append(out, e)
		}
	}
	return out
}
