package lua

import (
	"context"
	"errors"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

const greetModule = `
local M = {}
function M.default(ctx)
  return { title = "Hello", body = ctx.environment.platform }
end
function M.shouldActivate(query)
  return query:sub(1, 5) == "hello"
end
return M
`

func TestRuntimeResolve(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, "commands/greet.lua", greetModule)

	rt := NewRuntime()
	defer rt.Close()

	m, err := rt.Resolve("com.example.greet", dir, "commands/greet")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := m.Exports(); len(got) != 2 || got[0] != "default" || got[1] != "shouldActivate" {
		t.Errorf("Exports() = %v", got)
	}
	if !m.Has("shouldActivate") || m.Has("missing") {
		t.Error("Has() mismatch")
	}

	again, err := rt.Resolve("com.example.greet", dir, "commands/greet.lua")
	if err != nil {
		t.Fatal(err)
	}
	if again != m {
		t.Error("Resolve() did not reuse the cached module")
	}

	ok, err := m.Call(context.Background(), "shouldActivate", "hello world")
	if err != nil || len(ok) != 1 || ok[0] != true {
		t.Errorf("shouldActivate = %v, %v", ok, err)
	}

	doc, err := m.Call(context.Background(), "default", map[string]any{
		"environment": map[string]any{"platform": "linux"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := doc[0].(map[string]any)
	if got["title"] != "Hello" || got["body"] != "linux" {
		t.Errorf("default() = %v", got)
	}

	if _, err := m.Call(context.Background(), "missing"); !errors.Is(err, ErrNoExport) {
		t.Errorf("Call(missing) error = %v", err)
	}
}

func TestRuntimeResolveMissing(t *testing.T) {
	rt := NewRuntime()
	defer rt.Close()

	tests := []struct {
		name    string
		dir     string
		handler string
	}{
		{"no file", t.TempDir(), "nothing"},
		{"empty handler", t.TempDir(), ""},
		{"no dir", "", "x"},
		{"escape", t.TempDir(), "../outside"},
		{"absolute", t.TempDir(), "/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rt.Resolve("p", tt.dir, tt.handler); !errors.Is(err, ErrModuleNotFound) {
				t.Errorf("Resolve() error = %v, want ErrModuleNotFound", err)
			}
		})
	}
}

func TestRuntimeIsolatesPlugins(t *testing.T) {
	dir := t.TempDir()
	path := writeLua(t, dir, "counter.lua", `
count = (count or 0) + 1
return { default = function() return count end }
`)

	rt := NewRuntime()
	defer rt.Close()

	a, err := rt.Load("a", path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := rt.Load("b", path)
	if err != nil {
		t.Fatal(err)
	}

	ra, _ := a.Call(context.Background(), "default")
	rb, _ := b.Call(context.Background(), "default")
	if ra[0] != int64(1) || rb[0] != int64(1) {
		t.Errorf("counts = %v, %v; plugins share globals", ra, rb)
	}
	if got := rt.Plugins(); len(got) != 2 {
		t.Errorf("Plugins() = %v", got)
	}
}

func TestRuntimeRelease(t *testing.T) {
	dir := t.TempDir()
	path := writeLua(t, dir, "m.lua", `return function() return 1 end`)

	rt := NewRuntime()
	m, err := rt.Load("p", path)
	if err != nil {
		t.Fatal(err)
	}

	rt.Release("p")
	rt.Release("p") // unknown id is a no-op

	if _, err := m.Call(context.Background(), "default"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call() after Release error = %v", err)
	}
	if len(rt.Plugins()) != 0 {
		t.Errorf("Plugins() = %v after release", rt.Plugins())
	}

	fresh, err := rt.Load("p", path)
	if err != nil {
		t.Fatal(err)
	}
	if fresh == m {
		t.Error("Load() after Release returned the stale module")
	}
}

func TestRuntimeHooks(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, IndexFile, `
started = false
return {
  onStartup = function() started = true end,
}
`)

	rt := NewRuntime()
	defer rt.Close()

	startup, unload, err := rt.Hooks("p", dir)
	if err != nil {
		t.Fatalf("Hooks() error = %v", err)
	}
	if startup == nil {
		t.Fatal("startup hook is nil")
	}
	if unload != nil {
		t.Error("unload hook should be nil when not exported")
	}
	if err := startup(context.Background()); err != nil {
		t.Errorf("startup() error = %v", err)
	}

	startup, unload, err = rt.Hooks("q", t.TempDir())
	if err != nil || startup != nil || unload != nil {
		t.Error("Hooks() without index.lua should return nils")
	}
}

func TestRuntimeHooksSurviveRelease(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, IndexFile, `
local count = 0
return {
  onStartup = function()
    count = count + 1
    if count > 1 then error("ran twice in one state") end
  end,
}
`)

	rt := NewRuntime()
	defer rt.Close()

	first, _, err := rt.Hooks("p", dir)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := rt.Hooks("p", dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := first(context.Background()); err != nil {
		t.Fatalf("first startup error = %v", err)
	}

	rt.Release("p")
	if err := second(context.Background()); err != nil {
		t.Errorf("startup after Release error = %v", err)
	}
}

func TestRuntimeHooksLoadError(t *testing.T) {
	dir := t.TempDir()
	writeLua(t, dir, IndexFile, `this is not lua`)

	rt := NewRuntime()
	defer rt.Close()

	if _, _, err := rt.Hooks("p", dir); err == nil {
		t.Error("Hooks() with broken index.lua should fail")
	}
}

func TestRuntimeWithModule(t *testing.T) {
	path := writeLua(t, t.TempDir(), "m.lua", `return function() return host.value() end`)

	rt := NewRuntime(WithModule("host", map[string]glua.LGFunction{
		"value": func(L *glua.LState) int {
			L.Push(glua.LString("from go"))
			return 1
		},
	}))
	defer rt.Close()

	m, err := rt.Load("p", path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Call(context.Background(), "default")
	if err != nil || len(got) != 1 || got[0] != "from go" {
		t.Errorf("default() = %v, %v", got, err)
	}
}
