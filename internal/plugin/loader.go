package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/keyed/internal/logging"
)

// Plugin sources, in discovery priority order.
const (
	SourceBundled     = "bundled"
	SourceUser        = "user"
	SourceDevelopment = "development"
)

// Location is a directory searched for plugins.
type Location struct {
	Source string
	Path   string
}

// HookResolver supplies lifecycle hooks for a plugin loaded from disk.
// Either hook may be nil.
type HookResolver func(m *Manifest) (onStartup, onUnload Hook, err error)

// LoadResult is the outcome of a discovery pass. One bad plugin never
// prevents the others from loading.
type LoadResult struct {
	Plugins []*Plugin
	Errors  []*LoadError
}

// Err joins every load error, or returns nil.
func (r *LoadResult) Err() error {
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Loader discovers plugin directories on disk.
type Loader struct {
	// Search locations (checked in order, first wins)
	locations []Location

	// Ids already provided elsewhere (compiled-in plugins)
	reserved map[string]bool

	hooks  HookResolver
	logger *logging.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLocations sets the plugin search locations.
func WithLocations(locs ...Location) LoaderOption {
	return func(l *Loader) {
		l.locations = locs
	}
}

// WithReserved marks ids that discovery must skip as duplicates.
func WithReserved(ids ...string) LoaderOption {
	return func(l *Loader) {
		for _, id := range ids {
			l.reserved[id] = true
		}
	}
}

// WithHookResolver sets how lifecycle hooks are found for disk plugins.
func WithHookResolver(h HookResolver) LoaderOption {
	return func(l *Loader) {
		l.hooks = h
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *logging.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		reserved: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrNull(l.logger).WithComponent("loader")
	return l
}

// DefaultLocations returns the user and development plugin directories
// under dataDir.
func DefaultLocations(dataDir string) []Location {
	return []Location{
		{Source: SourceUser, Path: filepath.Join(dataDir, "plugins", SourceUser)},
		{Source: SourceDevelopment, Path: filepath.Join(dataDir, "plugins", SourceDevelopment)},
	}
}

// Locations returns the configured search locations.
func (l *Loader) Locations() []Location {
	return l.locations
}

// Discover loads every plugin directory in every location. Missing
// locations are skipped silently.
func (l *Loader) Discover() *LoadResult {
	result := &LoadResult{}
	seen := make(map[string]bool, len(l.reserved))
	for id := range l.reserved {
		seen[id] = true
	}

	for _, loc := range l.locations {
		entries, err := os.ReadDir(loc.Path)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, &LoadError{Path: loc.Path, Err: err})
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(loc.Path, entry.Name())
			p, err := l.readDir(dir, loc.Source)
			if err != nil {
				if errors.Is(err, ErrNoManifest) {
					l.logger.Debug("skipping %s: %v", dir, err)
					continue
				}
				result.Errors = append(result.Errors, &LoadError{Path: dir, Err: err})
				continue
			}

			// Don't override earlier discoveries (first location wins).
			// A duplicate never gets its hooks resolved.
			if seen[p.ID()] {
				result.Errors = append(result.Errors, &LoadError{
					Path:     dir,
					PluginID: p.ID(),
					Err:      ErrDuplicatePlugin,
				})
				continue
			}
			seen[p.ID()] = true

			if err := l.resolveHooks(p); err != nil {
				result.Errors = append(result.Errors, &LoadError{Path: dir, PluginID: p.ID(), Err: err})
				continue
			}
			result.Plugins = append(result.Plugins, p)
		}
	}

	for _, e := range result.Errors {
		l.logger.Warn("%v", e)
	}
	return result
}

// LoadDir loads the plugin in dir and resolves its lifecycle hooks.
func (l *Loader) LoadDir(dir, source string) (*Plugin, error) {
	p, err := l.readDir(dir, source)
	if err != nil {
		return nil, err
	}
	if err := l.resolveHooks(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *Loader) readDir(dir, source string) (*Plugin, error) {
	path, err := FindManifest(dir)
	if err != nil {
		return nil, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}

	for _, w := range ReviewPermissions(m.Permissions) {
		l.logger.WithField("plugin", m.ID).Warn("permission review: %s", w)
	}

	return &Plugin{Manifest: m, Source: source}, nil
}

func (l *Loader) resolveHooks(p *Plugin) error {
	if l.hooks == nil {
		return nil
	}
	startup, unload, err := l.hooks(p.Manifest)
	if err != nil {
		return fmt.Errorf("plugin %q hooks: %w", p.ID(), err)
	}
	p.OnStartup, p.OnUnload = startup, unload
	return nil
}
