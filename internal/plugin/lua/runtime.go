package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyed/internal/logging"
)

// IndexFile is the optional per-plugin lifecycle script.
const IndexFile = "index.lua"

// Lifecycle export names in IndexFile.
const (
	ExportStartup = "onStartup"
	ExportUnload  = "onUnload"
)

// Runtime owns one State per plugin and caches loaded modules.
type Runtime struct {
	mu      sync.Mutex
	states  map[string]*State
	modules map[string]*Module // keyed by plugin id + "\x00" + path
	host    map[string]map[string]lua.LGFunction
	timeout time.Duration
	logger  *logging.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithModule installs a global module of Go functions in every state.
func WithModule(name string, funcs map[string]lua.LGFunction) RuntimeOption {
	return func(r *Runtime) { r.host[name] = funcs }
}

// WithTimeout bounds each call into Lua.
func WithTimeout(d time.Duration) RuntimeOption {
	return func(r *Runtime) { r.timeout = d }
}

// WithLogger sets the logger; Lua print goes to it at info level.
func WithLogger(l *logging.Logger) RuntimeOption {
	return func(r *Runtime) { r.logger = l }
}

// NewRuntime creates an empty runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		states:  make(map[string]*State),
		modules: make(map[string]*Module),
		host:    make(map[string]map[string]lua.LGFunction),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNull(r.logger).WithComponent("lua")
	return r
}

// state returns the plugin's State, creating it if needed. r.mu must be held.
func (r *Runtime) state(pluginID string) (*State, error) {
	if s, ok := r.states[pluginID]; ok {
		return s, nil
	}

	log := r.logger.WithField("plugin", pluginID)
	s, err := NewState(
		WithCallTimeout(r.timeout),
		WithPrint(func(msg string) { log.Info("%s", msg) }),
	)
	if err != nil {
		return nil, err
	}
	for name, funcs := range r.host {
		s.RegisterModule(name, funcs)
	}
	r.states[pluginID] = s
	return s, nil
}

// Load loads the module at path in the plugin's state. Modules are cached
// until the plugin is released.
func (r *Runtime) Load(pluginID, path string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pluginID + "\x00" + path
	if m, ok := r.modules[key]; ok {
		return m, nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrModuleNotFound)
		}
		return nil, err
	}

	s, err := r.state(pluginID)
	if err != nil {
		return nil, err
	}
	exports, err := s.LoadModule(path)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: load %s: %w", pluginID, filepath.Base(path), err)
	}

	m := &Module{state: s, path: path, exports: exports}
	r.modules[key] = m
	r.logger.Debug("loaded %s for %s", path, pluginID)
	return m, nil
}

// Resolve finds the handler file in dir, trying the handler as given and
// then with a .lua extension, and loads it.
func (r *Runtime) Resolve(pluginID, dir, handler string) (*Module, error) {
	if dir == "" || handler == "" {
		return nil, ErrModuleNotFound
	}
	clean := filepath.Clean(filepath.FromSlash(handler))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("handler %q escapes plugin directory: %w", handler, ErrModuleNotFound)
	}

	candidates := []string{filepath.Join(dir, clean)}
	if filepath.Ext(clean) != ".lua" {
		candidates = append(candidates, filepath.Join(dir, clean+".lua"))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return r.Load(pluginID, path)
		}
	}
	return nil, fmt.Errorf("%s in %s: %w", handler, dir, ErrModuleNotFound)
}

// Hooks returns onStartup and onUnload from the plugin's index.lua. A
// missing file or export yields a nil hook. Each hook looks the module up
// again when it runs, so a hook outlives a Release of the plugin's state
// and runs in the state the plugin's commands use.
func (r *Runtime) Hooks(pluginID, dir string) (startup, unload func(context.Context) error, err error) {
	path := filepath.Join(dir, IndexFile)
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, nil, nil
	}

	m, err := r.Load(pluginID, path)
	if err != nil {
		return nil, nil, err
	}
	hook := func(name string) func(context.Context) error {
		if !m.Has(name) {
			return nil
		}
		return func(ctx context.Context) error {
			cur, err := r.Load(pluginID, path)
			if err != nil {
				return err
			}
			_, err = cur.Call(ctx, name)
			return err
		}
	}
	return hook(ExportStartup), hook(ExportUnload), nil
}

// Release closes the plugin's state and forgets its modules.
func (r *Runtime) Release(pluginID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[pluginID]
	if !ok {
		return
	}
	_ = s.Close()
	delete(r.states, pluginID)

	prefix := pluginID + "\x00"
	for key := range r.modules {
		if strings.HasPrefix(key, prefix) {
			delete(r.modules, key)
		}
	}
}

// Plugins returns the ids of plugins with a live state.
func (r *Runtime) Plugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close releases every state.
func (r *Runtime) Close() error {
	for _, id := range r.Plugins() {
		r.Release(id)
	}
	return nil
}
