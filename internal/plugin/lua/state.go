package lua

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// State wraps a gopher-lua LState.
//
// gopher-lua's LState is not goroutine-safe; every method takes the
// State's mutex, so calls from different goroutines are serialized.
type State struct {
	L *lua.LState

	mu          sync.Mutex
	callTimeout time.Duration
	print       func(string)
	closed      bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallTimeout bounds every Call. Zero means no limit beyond the
// caller's context.
func WithCallTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.callTimeout = d
	}
}

// WithPrint redirects Lua's print to fn.
func WithPrint(fn func(string)) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a Lua state with the safe standard libraries.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	s.L = L

	if s.print != nil {
		L.SetGlobal("print", L.NewFunction(s.luaPrint))
	}
	return s, nil
}

// openSafeLibraries opens base, table, string and math. io, os, debug and
// package stay closed; host access goes through the keyed module.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (s *State) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.print(strings.Join(parts, "\t"))
	return 0
}

// DoString executes a chunk of Lua source.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return recoverLua(func() error { return s.L.DoString(code) })
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return recoverLua(func() error { return s.L.DoFile(path) })
}

// LoadModule runs path and returns its exports table.
func (s *State) LoadModule(path string) (*lua.LTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	var ret lua.LValue
	err := recoverLua(func() error {
		fn, err := s.L.LoadFile(path)
		if err != nil {
			return err
		}
		s.L.Push(fn)
		if err := s.L.PCall(0, 1, nil); err != nil {
			return err
		}
		ret = s.L.Get(-1)
		s.L.Pop(1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch v := ret.(type) {
	case *lua.LTable:
		return v, nil
	case *lua.LFunction:
		t := s.L.NewTable()
		t.RawSetString("default", v)
		return t, nil
	default:
		return nil, fmt.Errorf("%s: %w (got %s)", path, ErrNotModule, ret.Type())
	}
}

// Call invokes fn with Go arguments and returns Go results. The call is
// interrupted when ctx is done.
func (s *State) Call(ctx context.Context, fn lua.LValue, args ...any) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("cannot call a %s value", fn.Type())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	top := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(ToLua(s.L, arg))
	}

	if err := recoverLua(func() error { return s.L.PCall(len(args), lua.MultRet, nil) }); err != nil {
		s.L.SetTop(top)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, err
	}

	n := s.L.GetTop() - top
	results := make([]any, n)
	for i := range n {
		results[i] = ToGo(s.L.Get(top + i + 1))
	}
	s.L.SetTop(top)
	return results, nil
}

// Eval compiles "return <expr>" and calls it like Call.
func (s *State) Eval(ctx context.Context, expr string) ([]any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStateClosed
	}
	var fn *lua.LFunction
	err := recoverLua(func() error {
		var err error
		fn, err = s.L.LoadString("return " + expr)
		return err
	})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Call(ctx, fn)
}

// GetGlobal returns a global value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global from a Go value.
func (s *State) SetGlobal(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, ToLua(s.L, value))
}

// RegisterModule installs funcs as the global table name.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
}

// inspect runs fn with the lock held, for reads of Lua values.
func (s *State) inspect(fn func(L *lua.LState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	fn(s.L)
	return nil
}

// IsClosed reports whether Close has been called.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. It is safe to call more than once.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

func recoverLua(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
