package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/plugin"
	"github.com/dshills/keyed/internal/plugin/lua"
)

// Handler module export names.
const (
	ExportDefault        = "default"
	ExportShouldActivate = "shouldActivate"
)

// Module is a resolved handler. Which fields must be set depends on the
// command mode: Run for no-view, Component for view and inline, plus
// ShouldActivate for inline.
type Module struct {
	Run            func(ctx context.Context, env execctx.Context) error
	Component      Component
	ShouldActivate func(ctx context.Context, query string) (bool, error)
}

// Resolver loads the module behind a command's handler. It returns an
// error wrapping ErrModuleNotFound when it has nothing for the handler.
type Resolver interface {
	Resolve(ctx context.Context, p *plugin.Plugin, cmd *plugin.CommandManifest) (*Module, error)
}

// StaticTable resolves compiled-in handlers keyed by
// "<last plugin id segment>/<handler>".
type StaticTable struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewStaticTable creates an empty table.
func NewStaticTable() *StaticTable {
	return &StaticTable{modules: make(map[string]*Module)}
}

// StaticKey returns the table key for a handler.
func StaticKey(pluginID, handler string) string {
	m := plugin.Manifest{ID: pluginID}
	return m.ShortName() + "/" + handler
}

// Add registers m under key.
func (t *StaticTable) Add(key string, m *Module) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modules[key] = m
}

// Len returns the number of modules.
func (t *StaticTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.modules)
}

// Resolve implements Resolver.
func (t *StaticTable) Resolve(_ context.Context, p *plugin.Plugin, cmd *plugin.CommandManifest) (*Module, error) {
	key := StaticKey(p.ID(), cmd.Handler)
	t.mu.RLock()
	m, ok := t.modules[key]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrModuleNotFound)
	}
	return m, nil
}

// LuaResolver loads handler files from the plugin directory.
type LuaResolver struct {
	rt *lua.Runtime
}

// NewLuaResolver wraps rt.
func NewLuaResolver(rt *lua.Runtime) *LuaResolver {
	return &LuaResolver{rt: rt}
}

// Resolve implements Resolver. The module's default export receives the
// execution context as a table (plus the query for inline commands) and
// may return a string or a {title, body, items} table.
func (l *LuaResolver) Resolve(_ context.Context, p *plugin.Plugin, cmd *plugin.CommandManifest) (*Module, error) {
	if p.Dir() == "" {
		return nil, fmt.Errorf("%s has no directory: %w", p.ID(), ErrModuleNotFound)
	}
	lm, err := l.rt.Resolve(p.ID(), p.Dir(), cmd.Handler)
	if err != nil {
		if errors.Is(err, lua.ErrModuleNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrModuleNotFound, err)
		}
		return nil, err
	}

	m := &Module{}
	if lm.Has(ExportDefault) {
		m.Run = func(ctx context.Context, env execctx.Context) error {
			_, err := lm.Call(ctx, ExportDefault, env.Map())
			return err
		}
		m.Component = ComponentFunc(func(ctx context.Context, env execctx.Context) (*Document, error) {
			out, err := lm.Call(ctx, ExportDefault, env.Map(), QueryFrom(ctx))
			if err != nil {
				return nil, err
			}
			var v any
			if len(out) > 0 {
				v = out[0]
			}
			return DocumentFromValue(v)
		})
	}
	if lm.Has(ExportShouldActivate) {
		m.ShouldActivate = func(ctx context.Context, query string) (bool, error) {
			out, err := lm.Call(ctx, ExportShouldActivate, query)
			if err != nil {
				return false, err
			}
			return len(out) > 0 && truthy(out[0]), nil
		}
	}
	return m, nil
}

// truthy follows Lua semantics: only nil and false are false.
func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	default:
		return true
	}
}

// Chain tries each resolver in order, moving on only when a resolver
// reports ErrModuleNotFound.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, p *plugin.Plugin, cmd *plugin.CommandManifest) (*Module, error) {
	var errs []error
	for _, r := range c {
		m, err := r.Resolve(ctx, p, cmd)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrModuleNotFound) {
			return nil, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("handler %q: %w", cmd.Handler, ErrModuleNotFound)
	}
	return nil, errors.Join(errs...)
}
