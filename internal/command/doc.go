// Package command turns plugin manifests into launcher entries.
//
// An Entry is what the palette shows: a title and its metadata plus an
// Executor. An Executor is exactly one of NoViewCommand, ViewCommand or
// InlineCommand, matching the manifest mode it was built from.
//
// The Registry holds every registered command keyed by
// "<pluginId>.<commandName>" (or the bare name for builtins) and bumps a
// version counter after each change so observers can cheaply detect
// updates.
//
// The Factory builds executors for plugin commands. Handler modules are
// resolved through a Resolver: the compiled-in StaticTable is tried first,
// then Lua files in the plugin directory. Plugin code always runs behind a
// failure boundary that recovers panics and marks the owning plugin as
// failed.
//
// The Binder connects the plugin registry's lifecycle to the command
// registry and supports entries created at runtime.
package command
