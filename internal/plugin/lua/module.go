package lua

import (
	"context"
	"fmt"
	"slices"

	lua "github.com/yuin/gopher-lua"
)

// Module is a loaded handler file and its exports.
type Module struct {
	state   *State
	path    string
	exports *lua.LTable
}

// Path returns the file the module was loaded from.
func (m *Module) Path() string {
	return m.path
}

// Has reports whether the module exports a function called name.
func (m *Module) Has(name string) bool {
	found := false
	_ = m.state.inspect(func(*lua.LState) {
		_, found = FuncField(m.exports, name)
	})
	return found
}

// Exports returns the names of exported functions, sorted.
func (m *Module) Exports() []string {
	var names []string
	_ = m.state.inspect(func(*lua.LState) {
		m.exports.ForEach(func(k, v lua.LValue) {
			if _, ok := v.(*lua.LFunction); ok {
				if s, ok := k.(lua.LString); ok {
					names = append(names, string(s))
				}
			}
		})
	})
	slices.Sort(names)
	return names
}

// Call invokes the exported function name.
func (m *Module) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	var fn lua.LValue = lua.LNil
	if err := m.state.inspect(func(*lua.LState) {
		fn = m.exports.RawGetString(name)
	}); err != nil {
		return nil, err
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%s: %w: %s", m.path, ErrNoExport, name)
	}
	return m.state.Call(ctx, fn, args...)
}
