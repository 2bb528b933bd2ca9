// Package palette turns registered commands into the result list shown by
// the launcher.
//
// The Palette reads the command registry at call time and never caches a
// result list, so commands registered by a plugin's startup hook show up on
// the next query. Results are:
//
//   - builtin entries followed by registry entries, in registration order
//   - limited to entries with no plugin or with an enabled plugin
//   - filtered by a case-insensitive substring match on title, subtitle
//     and keywords when the query is not blank
//
// There is no scoring. Order is always the order of the base set.
//
// # Grouping
//
// Group partitions a result list by category for display. Entries without
// a category land in "Other". Groups appear in the order their first entry
// appears.
//
// # Navigation
//
// Cursor tracks the selected index over a flat result list:
//
//	c := palette.NewCursor(len(results))
//	c.PageDown() // +10, clamped to the last entry
//	sel := results[c.Index()]
//
// # Thread Safety
//
// Palette is safe for concurrent use. Cursor is not; it belongs to one
// frontend.
package palette
