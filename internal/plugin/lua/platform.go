package lua

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyed/internal/platform"
)

// HostModuleName is the global through which Lua reaches the host.
const HostModuleName = "keyed"

// HostModule exposes api to Lua. Functions whose capability is nil raise
// a Lua error; failures of the capability itself return nil plus a message.
func HostModule(api platform.API) map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"clipboard_read": func(L *lua.LState) int {
			if api.Clipboard == nil {
				L.RaiseError("clipboard: %v", ErrUnavailable)
				return 0
			}
			text, err := api.Clipboard.ReadText()
			return pushResult(L, lua.LString(text), err)
		},

		"clipboard_write": func(L *lua.LState) int {
			text := L.CheckString(1)
			if api.Clipboard == nil {
				L.RaiseError("clipboard: %v", ErrUnavailable)
				return 0
			}
			return pushResult(L, lua.LTrue, api.Clipboard.WriteText(text))
		},

		"shell": func(L *lua.LState) int {
			program := L.CheckString(1)
			args := make([]string, 0, L.GetTop()-1)
			for i := 2; i <= L.GetTop(); i++ {
				args = append(args, L.CheckString(i))
			}
			if api.Shell == nil {
				L.RaiseError("shell: %v", ErrUnavailable)
				return 0
			}
			return pushResult(L, lua.LTrue, api.Shell.Execute(callerContext(L), program, args...))
		},

		"notify": func(L *lua.LState) int {
			msg := L.CheckString(1)
			sev := platform.ParseSeverity(L.OptString(2, "info"))
			if api.Notifications != nil {
				api.Notifications.Show(msg, sev)
			}
			return 0
		},

		"applications": func(L *lua.LState) int {
			if api.System == nil {
				L.RaiseError("applications: %v", ErrUnavailable)
				return 0
			}
			apps, err := api.System.Applications(callerContext(L))
			if err != nil {
				return pushResult(L, lua.LNil, err)
			}
			t := L.CreateTable(len(apps), 0)
			for i, app := range apps {
				entry := L.CreateTable(0, 3)
				entry.RawSetString("name", lua.LString(app.Name))
				entry.RawSetString("path", lua.LString(app.Path))
				entry.RawSetString("id", lua.LString(app.Key()))
				t.RawSetInt(i+1, entry)
			}
			L.Push(t)
			return 1
		},

		"environment": func(L *lua.LState) int {
			if api.Environment == nil {
				L.RaiseError("environment: %v", ErrUnavailable)
				return 0
			}
			L.Push(ToLua(L, api.Environment.Get().Map()))
			return 1
		},
	}
}

// pushResult follows the Lua convention of value or nil, message.
func pushResult(L *lua.LState, ok lua.LValue, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(ok)
	return 1
}

func callerContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
