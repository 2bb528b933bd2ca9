package command

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/plugin"
)

// StatusReporter receives the status of a plugin whose code failed.
// *plugin.Registry satisfies it.
type StatusReporter interface {
	SetStatus(id string, st plugin.Status)
}

// Factory builds executors for plugin commands.
type Factory struct {
	resolver Resolver
	logger   *logging.Logger

	mu       sync.RWMutex
	reporter StatusReporter
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithReporter sets where plugin failures are reported.
func WithReporter(r StatusReporter) FactoryOption {
	return func(f *Factory) { f.reporter = r }
}

// WithFactoryLogger sets the logger.
func WithFactoryLogger(l *logging.Logger) FactoryOption {
	return func(f *Factory) { f.logger = l }
}

// NewFactory creates a factory resolving handlers through resolver.
func NewFactory(resolver Resolver, opts ...FactoryOption) *Factory {
	f := &Factory{resolver: resolver}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.OrNull(f.logger).WithComponent("factory")
	return f
}

// SetReporter replaces the status reporter. The plugin registry is created
// after the factory, so it is attached here.
func (f *Factory) SetReporter(r StatusReporter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reporter = r
}

// Build returns the executor for the named command of p.
func (f *Factory) Build(p *plugin.Plugin, name string) (Executor, error) {
	if p == nil || p.Manifest == nil {
		return nil, plugin.ErrNilPlugin
	}
	cmd, ok := p.Manifest.Command(name)
	if !ok {
		return nil, &NotFoundError{PluginID: p.ID(), Command: name}
	}

	switch cmd.Mode {
	case plugin.ModeNoView:
		return f.noView(p, cmd), nil
	case plugin.ModeView:
		return f.view(p, cmd), nil
	case plugin.ModeInline:
		return f.inline(p, cmd), nil
	default:
		return nil, &UnsupportedModeError{Mode: cmd.Mode}
	}
}

// Entry builds the launcher entry for the named command of p.
func (f *Factory) Entry(p *plugin.Plugin, name string) (Entry, error) {
	exec, err := f.Build(p, name)
	if err != nil {
		return Entry{}, err
	}
	cmd, _ := p.Manifest.Command(name)
	return Entry{
		ID:          CommandID(p.ID(), cmd.Name),
		CommandName: cmd.Name,
		Title:       cmd.DisplayName,
		Subtitle:    cmd.Subtitle,
		Description: cmd.Description,
		Category:    cmd.Category,
		Icon:        cmd.Icon,
		Keywords:    cmd.Keywords,
		PluginID:    p.ID(),
		Execute:     exec,
	}, nil
}

func (f *Factory) noView(p *plugin.Plugin, cmd *plugin.CommandManifest) NoViewCommand {
	return NoViewCommand{
		Run: func(ctx context.Context, env execctx.Context) error {
			return f.guard(ctx, p.ID(), func() error {
				m, err := f.resolver.Resolve(ctx, p, cmd)
				if err != nil {
					return err
				}
				if m.Run == nil {
					return &ContractError{Command: cmd.Name, Mode: cmd.Mode, Export: ExportDefault}
				}
				return m.Run(ctx, env)
			})
		},
	}
}

func (f *Factory) view(p *plugin.Plugin, cmd *plugin.CommandManifest) ViewCommand {
	return ViewCommand{
		Load: func(ctx context.Context) (Component, error) {
			m, err := f.resolver.Resolve(ctx, p, cmd)
			if err != nil {
				return nil, &ExecutionError{Command: cmd.Name, Err: err}
			}
			if m == nil {
				return nil, &ExecutionError{Command: cmd.Name}
			}
			if m.Component == nil {
				return nil, &ExecutionError{Command: cmd.Name, Err: &ContractError{Command: cmd.Name, Mode: cmd.Mode, Export: ExportDefault}}
			}
			return f.guardComponent(p.ID(), m.Component), nil
		},
	}
}

func (f *Factory) inline(p *plugin.Plugin, cmd *plugin.CommandManifest) InlineCommand {
	log := f.logger.WithField("command", CommandID(p.ID(), cmd.Name))
	return InlineCommand{
		Activate: func(ctx context.Context, query string) bool {
			active := false
			err := f.guard(ctx, p.ID(), func() error {
				m, err := f.resolver.Resolve(ctx, p, cmd)
				if err != nil {
					return err
				}
				if m.ShouldActivate == nil {
					return &ContractError{Command: cmd.Name, Mode: cmd.Mode, Export: ExportShouldActivate}
				}
				active, err = m.ShouldActivate(ctx, query)
				return err
			})
			if err != nil {
				log.Warn("shouldActivate: %v", err)
				return false
			}
			return active
		},
		Load: func(ctx context.Context) (Component, error) {
			var comp Component
			err := f.guard(ctx, p.ID(), func() error {
				m, err := f.resolver.Resolve(ctx, p, cmd)
				if err != nil {
					return err
				}
				if m.Component == nil {
					return &ContractError{Command: cmd.Name, Mode: cmd.Mode, Export: ExportDefault}
				}
				comp = m.Component
				return nil
			})
			if err != nil {
				return nil, &ExecutionError{Command: cmd.Name, Err: err}
			}
			return f.guardComponent(p.ID(), comp), nil
		},
	}
}

func (f *Factory) guardComponent(pluginID string, c Component) Component {
	return ComponentFunc(func(ctx context.Context, env execctx.Context) (*Document, error) {
		var doc *Document
		err := f.guard(ctx, pluginID, func() error {
			var err error
			doc, err = c.Render(ctx, env)
			return err
		})
		return doc, err
	})
}

// guard is the failure boundary around plugin code. Panics become errors;
// any failure other than the caller's own cancellation marks the plugin as
// failed with the error message.
func (f *Factory) guard(ctx context.Context, pluginID string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		if err == nil {
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return
		}
		f.fail(pluginID, err)
	}()
	return fn()
}

func (f *Factory) fail(pluginID string, err error) {
	f.logger.WithField("plugin", pluginID).Error("%v", err)

	f.mu.RLock()
	reporter := f.reporter
	f.mu.RUnlock()
	if reporter != nil && pluginID != "" {
		reporter.SetStatus(pluginID, plugin.Failed(err.Error()))
	}
}
