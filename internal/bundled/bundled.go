// Package bundled holds the plugins compiled into the launcher.
//
// Each plugin's manifest is embedded from plugins/<name>/manifest.json and
// validated like any plugin on disk. Handlers are Go functions installed in
// a command.StaticTable under "<last id segment>/<handler>".
package bundled

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/plugin"
	"github.com/dshills/keyed/internal/theme"
)

//go:embed plugins/*/manifest.json
var manifestFS embed.FS

// PluginLister lists registered plugins. *plugin.Registry implements it.
type PluginLister interface {
	Infos() []plugin.Info
}

// DynamicRegistrar registers entries built at runtime.
// *command.Binder implements it.
type DynamicRegistrar interface {
	RegisterDynamicEntries(pluginID string, entries []command.Entry) error
}

// Deps are the collaborators bundled handlers use.
type Deps struct {
	API      platform.API
	Platform string
	Themes   theme.Provider
	Plugins  PluginLister
	Dynamic  DynamicRegistrar
	Logger   *logging.Logger
}

// Bundle is the set of bundled plugins and their handlers.
type Bundle struct {
	plugins []*plugin.Plugin
	modules map[string]*command.Module
	calc    *calculator
	logger  *logging.Logger
}

// New validates the embedded manifests and builds the handlers.
func New(deps Deps) (*Bundle, error) {
	b := &Bundle{
		modules: make(map[string]*command.Module),
		logger:  logging.OrNull(deps.Logger).WithComponent("bundled"),
	}

	calc, err := newCalculator()
	if err != nil {
		return nil, fmt.Errorf("calculator: %w", err)
	}
	b.calc = calc

	manifests, err := Manifests()
	if err != nil {
		calc.close()
		return nil, err
	}

	handlers := b.handlers(deps)
	hooks := b.hooks(deps)
	for _, m := range manifests {
		p := &plugin.Plugin{Manifest: m, Source: plugin.SourceBundled}
		if h, ok := hooks[m.ShortName()]; ok {
			p.OnStartup, p.OnUnload = h.startup, h.unload
		}
		for _, cmd := range m.Commands {
			key := command.StaticKey(m.ID, cmd.Handler)
			mod, ok := handlers[key]
			if !ok {
				calc.close()
				return nil, fmt.Errorf("bundled plugin %s: no handler for %s", m.ID, key)
			}
			b.modules[key] = mod
		}
		b.plugins = append(b.plugins, p)
	}
	return b, nil
}

// Manifests returns the validated embedded manifests ordered by directory
// name.
func Manifests() ([]*plugin.Manifest, error) {
	paths, err := fs.Glob(manifestFS, "plugins/*/"+plugin.ManifestJSON)
	if err != nil {
		return nil, err
	}

	var (
		result []*plugin.Manifest
		errs   []error
	)
	for _, p := range paths {
		data, err := manifestFS.ReadFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m, err := plugin.Validate(data, path.Join("bundled", path.Base(path.Dir(p)), plugin.ManifestJSON))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result = append(result, m)
	}
	return result, errors.Join(errs...)
}

// Install adds every bundled handler to table.
func (b *Bundle) Install(table *command.StaticTable) {
	for key, mod := range b.modules {
		table.Add(key, mod)
	}
}

// Plugins returns the bundled plugins.
func (b *Bundle) Plugins() []*plugin.Plugin {
	return append([]*plugin.Plugin(nil), b.plugins...)
}

// IDs returns the bundled plugin ids.
func (b *Bundle) IDs() []string {
	ids := make([]string, len(b.plugins))
	for i, p := range b.plugins {
		ids[i] = p.ID()
	}
	return ids
}

// Close releases the calculator's Lua state.
func (b *Bundle) Close() error {
	return b.calc.close()
}

type lifecycle struct {
	startup plugin.Hook
	unload  plugin.Hook
}

func (b *Bundle) hooks(deps Deps) map[string]lifecycle {
	return map[string]lifecycle{
		"app-launcher": {startup: appLauncherStartup(deps, b.logger)},
	}
}

func (b *Bundle) handlers(deps Deps) map[string]*command.Module {
	handlers := make(map[string]*command.Module)
	add := func(pluginID, handler string, m *command.Module) {
		handlers[command.StaticKey(pluginID, handler)] = m
	}

	for name, action := range systemActions {
		add("com.keyed.system-ops", "commands/"+name, shellModule(deps, action))
	}
	for name, action := range volumeActions {
		add("com.keyed.volume-control", "commands/"+name, shellModule(deps, action))
	}
	add("com.keyed.theme-manager", "commands/show-themes", &command.Module{Component: showThemes(deps.Themes)})
	add("com.keyed.plugin-manager", "commands/manage-plugins", &command.Module{Component: managePlugins(deps.Plugins)})
	add("com.keyed.calculator", "commands/calculate", b.calc.module())
	add("com.keyed.developer", "commands/generate-uuid", &command.Module{Run: generateUUID(deps.API)})
	return handlers
}
