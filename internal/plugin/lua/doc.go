// Package lua runs plugin handler modules written in Lua.
//
// A handler module is a file that returns a table of exports:
//
//	local M = {}
//
//	function M.default(ctx)
//	    keyed.notify("Hello from " .. ctx.environment.platform, "success")
//	end
//
//	function M.shouldActivate(query)
//	    return query:match("^hello") ~= nil
//	end
//
//	return M
//
// A file returning a bare function is treated as {default = fn}.
//
// Each plugin gets its own State, created on first use by a Runtime and
// released when the plugin is unregistered. States open only the base,
// table, string and math libraries; print is routed to the logger.
//
// An optional index.lua in the plugin directory may export onStartup and
// onUnload, which the Runtime exposes as lifecycle hooks.
//
// The host capability surface is installed as the global "keyed" table
// (see HostModule): clipboard_read, clipboard_write, shell, notify,
// applications and environment.
package lua
