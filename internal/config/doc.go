// Package config loads the launcher configuration.
//
// Settings come from three layers, lowest priority first:
//
//   - built-in defaults (Default)
//   - $XDG_CONFIG_HOME/keyed/config.toml
//   - KEYED_* environment variables
//
// A missing file is not an error. Example file:
//
//	debug = false
//	notify_on_failure = true
//
//	[log]
//	level = "debug"
//	format = "logfmt"
//
//	[plugins]
//	disabled = ["com.keyed.volume-control"]
//	watch = true
//
//	[themes]
//	current = "light"
package config
