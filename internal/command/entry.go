package command

import (
	"context"

	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/plugin"
)

// Source tags where a registered command came from.
type Source string

// Command sources.
const (
	SourcePlugin  Source = "plugin"
	SourceBuiltin Source = "builtin"
	SourceUser    Source = "user"
)

// Document is the rendered output of a view or inline component.
type Document struct {
	Title string
	Body  string
	Items []Item
}

// Item is one row of a Document.
type Item struct {
	Title     string
	Subtitle  string
	Accessory string
}

// Component renders a document for an execution context.
type Component interface {
	Render(ctx context.Context, env execctx.Context) (*Document, error)
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context, env execctx.Context) (*Document, error)

// Render calls f.
func (f ComponentFunc) Render(ctx context.Context, env execctx.Context) (*Document, error) {
	return f(ctx, env)
}

// Executor is the execute payload of an Entry. The concrete types are
// NoViewCommand, ViewCommand and InlineCommand.
type Executor interface {
	Mode() plugin.Mode
	executor()
}

// NoViewCommand runs for its side effects.
type NoViewCommand struct {
	Run func(ctx context.Context, env execctx.Context) error
}

// Mode returns plugin.ModeNoView.
func (NoViewCommand) Mode() plugin.Mode { return plugin.ModeNoView }
func (NoViewCommand) executor()         {}

// Execute runs the command.
func (c NoViewCommand) Execute(ctx context.Context, env execctx.Context) error {
	if c.Run == nil {
		return ErrNilExecutor
	}
	return c.Run(ctx, env)
}

// ViewCommand produces a component to be rendered in its own view.
type ViewCommand struct {
	Load func(ctx context.Context) (Component, error)
}

// Mode returns plugin.ModeView.
func (ViewCommand) Mode() plugin.Mode { return plugin.ModeView }
func (ViewCommand) executor()         {}

// Execute returns the view's component.
func (c ViewCommand) Execute(ctx context.Context) (Component, error) {
	if c.Load == nil {
		return nil, ErrNilExecutor
	}
	return c.Load(ctx)
}

// InlineCommand is evaluated against the live query and, when it activates,
// rendered above the regular results.
type InlineCommand struct {
	Activate func(ctx context.Context, query string) bool
	Load     func(ctx context.Context) (Component, error)
}

// Mode returns plugin.ModeInline.
func (InlineCommand) Mode() plugin.Mode { return plugin.ModeInline }
func (InlineCommand) executor()         {}

// ShouldActivate reports whether the command claims query.
func (c InlineCommand) ShouldActivate(ctx context.Context, query string) bool {
	if c.Activate == nil {
		return false
	}
	return c.Activate(ctx, query)
}

// Execute returns the inline component.
func (c InlineCommand) Execute(ctx context.Context) (Component, error) {
	if c.Load == nil {
		return nil, ErrNilExecutor
	}
	return c.Load(ctx)
}

// Entry is the user-facing projection of a command.
type Entry struct {
	ID          string
	CommandName string
	Title       string
	Subtitle    string
	Description string
	Category    string
	Icon        string
	Keywords    []string
	PluginID    string
	Execute     Executor
}

// Mode returns the executor's mode, or "" when there is none.
func (e Entry) Mode() plugin.Mode {
	if e.Execute == nil {
		return ""
	}
	return e.Execute.Mode()
}

// Registered is a command held by the Registry.
type Registered struct {
	PluginID    string
	CommandName string
	Entry       Entry
	Source      Source
}

// ID returns the registry key: "<pluginId>.<commandName>", or the bare
// command name when there is no plugin.
func (r Registered) ID() string {
	return CommandID(r.PluginID, r.CommandName)
}

// CommandID builds a registry key.
func CommandID(pluginID, commandName string) string {
	if pluginID == "" {
		return commandName
	}
	return pluginID + "." + commandName
}

type queryKey struct{}

// WithQuery attaches the search query that activated an inline command.
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

// QueryFrom returns the query attached by WithQuery.
func QueryFrom(ctx context.Context) string {
	q, _ := ctx.Value(queryKey{}).(string)
	return q
}
