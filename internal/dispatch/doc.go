// Package dispatch activates launcher entries.
//
// Activation depends on the entry's mode:
//
//  1. no-view: the command runs in the background. Its failure is logged
//     with the entry id and, when enabled, shown as an error notification.
//     The caller is never blocked or failed by it.
//  2. view: the dispatcher navigates to /plugin/<pluginId>/<commandName>,
//     then loads the view's component and renders it with a fresh
//     execution context.
//  3. inline: the component is rendered like a view but the route does not
//     change. Put the live query on the context with command.WithQuery.
//
// Every activation gets a UUID invocation id that appears in the logs.
package dispatch
