package app

import (
	"context"
	"fmt"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/dispatch"
	"github.com/dshills/keyed/internal/inline"
	"github.com/dshills/keyed/internal/palette"
)

// Results is everything the launcher shows for one query.
type Results struct {
	Query string

	// Inline is the active inline result; check Inline.Active().
	Inline inline.Result

	// Entries are the filtered entries with the inline entry, if any, first.
	Entries []command.Entry

	// Groups are the filtered entries grouped by category, excluding the
	// inline entry.
	Groups []palette.Group
}

// Search evaluates query synchronously: the inline evaluator runs first,
// then the aggregated entries are filtered and grouped.
func (l *Launcher) Search(ctx context.Context, query string) Results {
	res, _ := l.inline.Evaluate(ctx, query)
	matches := l.palette.Results(query)
	return Results{
		Query:   query,
		Inline:  res,
		Entries: palette.WithInline(res.Entry, matches),
		Groups:  palette.GroupByCategory(matches),
	}
}

// Find returns the visible entry with id.
func (l *Launcher) Find(id string) (command.Entry, error) {
	e, ok := l.palette.Find(id)
	if !ok {
		return command.Entry{}, fmt.Errorf("%q: %w", id, ErrEntryNotFound)
	}
	return e, nil
}

// Activate dispatches the entry with id.
func (l *Launcher) Activate(ctx context.Context, id string) (dispatch.Outcome, error) {
	e, err := l.Find(id)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	return l.dispatcher.Activate(ctx, e), nil
}

// Run activates the entry with id and, for no-view commands, waits for it
// to finish. The returned error is the command's failure, if any.
func (l *Launcher) Run(ctx context.Context, id string) (dispatch.Outcome, error) {
	out, err := l.Activate(ctx, id)
	if err != nil {
		return out, err
	}
	if out.Done != nil {
		select {
		case out.Err = <-out.Done:
		case <-ctx.Done():
			out.Err = ctx.Err()
		}
	}
	return out, out.Err
}
