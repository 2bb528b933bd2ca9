package command

import (
	"errors"
	"fmt"

	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/plugin"
	"github.com/dshills/keyed/internal/plugin/lua"
)

// Binder keeps the command registry in step with plugin lifecycle. It
// implements plugin.CommandSync.
type Binder struct {
	commands *Registry
	factory  *Factory
	runtime  *lua.Runtime
	logger   *logging.Logger
}

var _ plugin.CommandSync = (*Binder)(nil)

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithRuntime releases a plugin's Lua state when its commands are removed.
func WithRuntime(rt *lua.Runtime) BinderOption {
	return func(b *Binder) { b.runtime = rt }
}

// WithBinderLogger sets the logger.
func WithBinderLogger(l *logging.Logger) BinderOption {
	return func(b *Binder) { b.logger = l }
}

// NewBinder creates a binder.
func NewBinder(commands *Registry, factory *Factory, opts ...BinderOption) *Binder {
	b := &Binder{commands: commands, factory: factory}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNull(b.logger).WithComponent("binder")
	return b
}

// RegisterPluginCommands registers every command declared by p. A command
// that fails to build is logged and skipped.
func (b *Binder) RegisterPluginCommands(p *plugin.Plugin) {
	for _, cmd := range p.Manifest.Commands {
		entry, err := b.factory.Entry(p, cmd.Name)
		if err != nil {
			b.logger.WithField("plugin", p.ID()).Error("failed to register command %s: %v", cmd.Name, err)
			continue
		}
		if _, err := b.commands.Register(Registered{
			PluginID:    p.ID(),
			CommandName: cmd.Name,
			Entry:       entry,
			Source:      SourcePlugin,
		}); err != nil {
			b.logger.WithField("plugin", p.ID()).Error("failed to register command %s: %v", cmd.Name, err)
		}
	}
}

// UnregisterPluginCommands removes every command owned by pluginID,
// including dynamic ones, and releases its Lua state.
func (b *Binder) UnregisterPluginCommands(pluginID string) {
	b.commands.UnregisterPlugin(pluginID)
	if b.runtime != nil {
		b.runtime.Release(pluginID)
	}
}

// RegisterDynamic registers an entry built at runtime under
// "<pluginID>.<entry.CommandName>" and returns that id.
func (b *Binder) RegisterDynamic(pluginID string, entry Entry) (string, error) {
	if pluginID == "" {
		return "", fmt.Errorf("dynamic entry %q: %w", entry.CommandName, plugin.ErrPluginNotFound)
	}
	entry.PluginID = pluginID
	return b.commands.Register(Registered{
		PluginID:    pluginID,
		CommandName: entry.CommandName,
		Entry:       entry,
		Source:      SourcePlugin,
	})
}

// RegisterDynamicEntries registers each entry, continuing past failures.
func (b *Binder) RegisterDynamicEntries(pluginID string, entries []Entry) error {
	var errs []error
	for _, e := range entries {
		if _, err := b.RegisterDynamic(pluginID, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.CommandName, err))
		}
	}
	return errors.Join(errs...)
}

// UnregisterDynamic removes one dynamic entry.
func (b *Binder) UnregisterDynamic(pluginID, commandName string) bool {
	return b.commands.Unregister(CommandID(pluginID, commandName))
}
