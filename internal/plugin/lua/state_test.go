package lua

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	s, err := NewState(opts...)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeLua(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStateDoString(t *testing.T) {
	s := newTestState(t)

	if err := s.DoString(`x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := s.GetGlobal("x"); got != glua.LNumber(2) {
		t.Errorf("x = %v, want 2", got)
	}
	if err := s.DoString(`invalid lua code !!!`); err == nil {
		t.Error("DoString() with syntax error should fail")
	}
}

func TestUnsafeLibrariesClosed(t *testing.T) {
	s := newTestState(t)

	for _, name := range []string{"io", "os", "debug", "package", "dofile", "loadfile", "load", "loadstring"} {
		if v := s.GetGlobal(name); v != glua.LNil {
			t.Errorf("global %s = %v, want nil", name, v.Type())
		}
	}
	for _, name := range []string{"string", "table", "math", "pairs"} {
		if v := s.GetGlobal(name); v == glua.LNil {
			t.Errorf("global %s missing", name)
		}
	}
}

func TestPrintRedirect(t *testing.T) {
	var lines []string
	s := newTestState(t, WithPrint(func(msg string) { lines = append(lines, msg) }))

	if err := s.DoString(`print("a", 1, true)`); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "a\t1\ttrue" {
		t.Errorf("print lines = %q", lines)
	}
}

func TestLoadModule(t *testing.T) {
	dir := t.TempDir()
	s := newTestState(t)

	tests := []struct {
		name    string
		src     string
		wantErr error
		export  string
	}{
		{"table", `return { default = function() end }`, nil, "default"},
		{"function", `return function() end`, nil, "default"},
		{"number", `return 42`, ErrNotModule, ""},
		{"nothing", `x = 1`, ErrNotModule, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLua(t, dir, tt.name+".lua", tt.src)
			exports, err := s.LoadModule(path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadModule() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadModule() error = %v", err)
			}
			if _, ok := FuncField(exports, tt.export); !ok {
				t.Errorf("export %q missing", tt.export)
			}
		})
	}

	if _, err := s.LoadModule(filepath.Join(dir, "missing.lua")); err == nil {
		t.Error("LoadModule() of missing file should fail")
	}
}

func TestStateCall(t *testing.T) {
	s := newTestState(t)
	if err := s.DoString(`function add(a, b) return a + b, "sum" end`); err != nil {
		t.Fatal(err)
	}

	got, err := s.Call(context.Background(), s.GetGlobal("add"), 2, 3)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(got) != 2 || got[0] != int64(5) || got[1] != "sum" {
		t.Errorf("Call() = %v, want [5 sum]", got)
	}

	if _, err := s.Call(context.Background(), glua.LNumber(1)); err == nil {
		t.Error("Call() on a number should fail")
	}
}

func TestStateCallError(t *testing.T) {
	s := newTestState(t)
	if err := s.DoString(`function fail() error("boom") end`); err != nil {
		t.Fatal(err)
	}

	_, err := s.Call(context.Background(), s.GetGlobal("fail"))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Call() error = %v, want boom", err)
	}

	// The stack is restored after an error.
	if top := s.L.GetTop(); top != 0 {
		t.Errorf("stack top = %d after failed call", top)
	}
}

func TestStateCallContext(t *testing.T) {
	s := newTestState(t)
	if err := s.DoString(`function spin() while true do end end`); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Call(ctx, s.GetGlobal("spin"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call() error = %v, want deadline exceeded", err)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if _, err := s.Call(cancelled, s.GetGlobal("spin")); !errors.Is(err, context.Canceled) {
		t.Errorf("Call() with cancelled context error = %v", err)
	}
}

func TestStateCallTimeout(t *testing.T) {
	s := newTestState(t, WithCallTimeout(50*time.Millisecond))
	if err := s.DoString(`function spin() while true do end end`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Call(context.Background(), s.GetGlobal("spin")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call() error = %v, want deadline exceeded", err)
	}
}

func TestStateRegisterModule(t *testing.T) {
	s := newTestState(t)
	s.RegisterModule("host", map[string]glua.LGFunction{
		"double": func(L *glua.LState) int {
			L.Push(L.CheckNumber(1) * 2)
			return 1
		},
	})
	s.SetGlobal("input", 21)

	if err := s.DoString(`result = host.double(input)`); err != nil {
		t.Fatal(err)
	}
	if got := s.GetGlobal("result"); got != glua.LNumber(42) {
		t.Errorf("result = %v, want 42", got)
	}
}

func TestStateClose(t *testing.T) {
	s, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !s.IsClosed() {
		t.Error("IsClosed() = false after Close()")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := s.DoString(`x = 1`); err != ErrStateClosed {
		t.Errorf("DoString() after close = %v", err)
	}
	if _, err := s.LoadModule("x.lua"); err != ErrStateClosed {
		t.Errorf("LoadModule() after close = %v", err)
	}
	if _, err := s.Call(context.Background(), glua.LNil); err != ErrStateClosed {
		t.Errorf("Call() after close = %v", err)
	}
	if v := s.GetGlobal("x"); v != glua.LNil {
		t.Errorf("GetGlobal() after close = %v", v)
	}
}

func TestStateEval(t *testing.T) {
	s := newTestState(t)

	tests := []struct {
		expr string
		want any
	}{
		{"1 + 2 * 3", int64(7)},
		{"(1 + 2) / 4", 0.75},
		{"2 ^ 10", int64(1024)},
		{"7 % 4", int64(3)},
	}
	for _, tt := range tests {
		got, err := s.Eval(context.Background(), tt.expr)
		if err != nil {
			t.Fatalf("Eval(%q) error = %v", tt.expr, err)
		}
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}

	if _, err := s.Eval(context.Background(), "1 +"); err == nil {
		t.Error("Eval() with syntax error should fail")
	}
	s.Close()
	if _, err := s.Eval(context.Background(), "1"); err != ErrStateClosed {
		t.Errorf("Eval() after close = %v", err)
	}
}
