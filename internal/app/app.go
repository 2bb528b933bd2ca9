// Package app wires the launcher together: configuration, logging, themes,
// the platform adapter, the plugin and command registries, bundled and
// on-disk plugins, result aggregation, the inline evaluator and dispatch.
//
// A Launcher owns every collaborator; nothing is held in package globals.
package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dshills/keyed/internal/bundled"
	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/config"
	"github.com/dshills/keyed/internal/dispatch"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/inline"
	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/palette"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/plugin"
	"github.com/dshills/keyed/internal/plugin/lua"
	"github.com/dshills/keyed/internal/theme"
)

// Options configures a Launcher.
type Options struct {
	// Config is the loaded configuration. Nil means config.Default.
	Config *config.Config

	// Logger overrides the logger built from Config.
	Logger *logging.Logger

	// API replaces the desktop adapter. Tests use it to fake the host.
	API *platform.API

	// Notify receives notifications after the desktop adapter logs them.
	Notify platform.NotifySink

	// Navigator receives view routes.
	Navigator dispatch.Navigator
}

// Launcher is the launcher service.
type Launcher struct {
	cfg    *config.Config
	logger *logging.Logger

	themes  *theme.Store
	env     *execctx.Builder
	desktop *platform.Desktop
	api     platform.API
	runtime *lua.Runtime

	commands *command.Registry
	table    *command.StaticTable
	factory  *command.Factory
	binder   *command.Binder
	plugins  *plugin.Registry
	bundle   *bundled.Bundle
	loader   *plugin.Loader

	palette    *palette.Palette
	inline     *inline.Evaluator
	dispatcher *dispatch.Dispatcher
	metrics    *dispatch.Metrics

	reloadMu sync.Mutex
	running  atomic.Bool
	cancel   context.CancelFunc
	bg       sync.WaitGroup
}

// New builds a Launcher. Plugins are not loaded until Start.
func New(opts Options) (*Launcher, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default(config.DataDir())
	}
	l := &Launcher{cfg: cfg, logger: opts.Logger}
	if l.logger == nil {
		l.logger = logging.New(cfg.Logging())
	}

	if err := l.bootstrap(opts); err != nil {
		if l.runtime != nil {
			l.runtime.Close()
		}
		return nil, err
	}
	return l, nil
}

// bootstrap initializes components in dependency order.
func (l *Launcher) bootstrap(opts Options) error {
	cfg := l.cfg

	// 1. Themes
	l.themes = theme.NewStore(theme.WithDir(cfg.Themes.Dir), theme.WithLogger(l.logger))
	if err := l.themes.Load(); err != nil {
		l.logger.Warn("load themes: %v", err)
	}
	if err := l.themes.Switch(cfg.Themes.Current); err != nil {
		l.logger.Warn("theme %q: %v", cfg.Themes.Current, err)
	}

	// 2. Execution context
	l.env = execctx.NewBuilder(l.themes, cfg.Platform, cfg.Debug)

	// 3. Host capabilities
	if opts.API != nil {
		l.api = *opts.API
		if l.api.Environment == nil {
			l.api.Environment = l.env
		}
	} else {
		l.desktop = platform.NewDesktop(platform.WithLogger(l.logger), platform.WithNotifySink(opts.Notify))
		l.api = l.desktop.API(l.env)
	}

	// 4. Lua runtime for plugins on disk
	l.runtime = lua.NewRuntime(
		lua.WithModule(lua.HostModuleName, lua.HostModule(l.api)),
		lua.WithLogger(l.logger),
	)

	// 5. Commands
	l.commands = command.NewRegistry(command.WithRegistryLogger(l.logger))
	l.table = command.NewStaticTable()
	l.factory = command.NewFactory(
		command.Chain{l.table, command.NewLuaResolver(l.runtime)},
		command.WithFactoryLogger(l.logger),
	)
	l.binder = command.NewBinder(l.commands, l.factory,
		command.WithRuntime(l.runtime),
		command.WithBinderLogger(l.logger),
	)

	// 6. Plugins
	l.plugins = plugin.NewRegistry(plugin.WithCommandSync(l.binder), plugin.WithLogger(l.logger))
	l.factory.SetReporter(l.plugins)

	bundle, err := bundled.New(bundled.Deps{
		API:      l.api,
		Platform: cfg.Platform,
		Themes:   l.themes,
		Plugins:  l.plugins,
		Dynamic:  l.binder,
		Logger:   l.logger,
	})
	if err != nil {
		return &InitError{Component: "bundled plugins", Err: err}
	}
	l.bundle = bundle
	l.bundle.Install(l.table)

	l.loader = plugin.NewLoader(
		plugin.WithLocations(
			plugin.Location{Source: plugin.SourceUser, Path: cfg.Plugins.UserDir},
			plugin.Location{Source: plugin.SourceDevelopment, Path: cfg.Plugins.DevelopmentDir},
		),
		plugin.WithReserved(l.bundle.IDs()...),
		plugin.WithHookResolver(l.luaHooks),
		plugin.WithLoaderLogger(l.logger),
	)

	if err := l.installBuiltins(); err != nil {
		return &InitError{Component: "builtins", Err: err}
	}

	// 7. Aggregation, inline evaluation, dispatch
	l.palette = palette.New(l.commands, palette.WithEnabledChecker(l.plugins))
	l.inline = inline.New(l.commands,
		inline.WithEnabledChecker(l.plugins),
		inline.WithEnvironment(l.env),
		inline.WithLogger(l.logger),
	)
	l.metrics = dispatch.NewMetrics()
	dopts := []dispatch.Option{
		dispatch.WithNotifyOnFailure(cfg.NotifyOnFailure),
		dispatch.WithMetrics(l.metrics),
		dispatch.WithLogger(l.logger),
	}
	if l.api.Notifications != nil {
		dopts = append(dopts, dispatch.WithNotifier(l.api.Notifications))
	}
	if opts.Navigator != nil {
		dopts = append(dopts, dispatch.WithNavigator(opts.Navigator))
	}
	l.dispatcher = dispatch.New(l.env, dopts...)
	return nil
}

func (l *Launcher) luaHooks(m *plugin.Manifest) (plugin.Hook, plugin.Hook, error) {
	return l.runtime.Hooks(m.ID, m.Dir())
}

// Config returns the configuration.
func (l *Launcher) Config() *config.Config { return l.cfg }

// Logger returns the root logger.
func (l *Launcher) Logger() *logging.Logger { return l.logger }

// Commands returns the command registry.
func (l *Launcher) Commands() *command.Registry { return l.commands }

// Plugins returns the plugin registry.
func (l *Launcher) Plugins() *plugin.Registry { return l.plugins }

// Themes returns the theme store.
func (l *Launcher) Themes() *theme.Store { return l.themes }

// Environment returns the execution context builder.
func (l *Launcher) Environment() *execctx.Builder { return l.env }

// Palette returns the result aggregator.
func (l *Launcher) Palette() *palette.Palette { return l.palette }

// Inline returns the inline evaluator.
func (l *Launcher) Inline() *inline.Evaluator { return l.inline }

// Dispatcher returns the dispatcher.
func (l *Launcher) Dispatcher() *dispatch.Dispatcher { return l.dispatcher }

// Metrics returns dispatch metrics.
func (l *Launcher) Metrics() *dispatch.Metrics { return l.metrics }

// SetNotifySink redirects desktop notifications, for example to a status
// line. It has no effect when Options.API was given.
func (l *Launcher) SetNotifySink(sink platform.NotifySink) {
	if l.desktop != nil {
		l.desktop.SetNotifySink(sink)
	}
}
