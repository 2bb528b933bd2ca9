// Package tui is the terminal frontend of the launcher.
//
// The screen has a query line, a result list and a status line. The
// active inline result is listed first, then the matches grouped under
// category headers. Up/Down move by one, PageUp/PageDown by ten, Enter
// dispatches the selection. A view replaces the list until Esc.
//
// The list is rebuilt whenever the command registry version changes, a
// plugin changes state, or the inline evaluator publishes a result.
package tui
