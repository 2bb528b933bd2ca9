package palette

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/dshills/keyed/internal/command"
)

// Filter matches entries against a query.
type Filter struct {
	query string
	fold  cases.Caser
}

// NewFilter creates a filter for query. The query is case folded once.
func NewFilter(query string) *Filter {
	f := &Filter{fold: cases.Fold()}
	f.query = f.fold.String(query)
	return f
}

// Match reports whether the query is a substring of the entry's title,
// subtitle or any keyword, ignoring case.
func (f *Filter) Match(e command.Entry) bool {
	if f.contains(e.Title) {
		return true
	}
	if e.Subtitle != "" && f.contains(e.Subtitle) {
		return true
	}
	for _, kw := range e.Keywords {
		if f.contains(kw) {
			return true
		}
	}
	return false
}

func (f *Filter) contains(text string) bool {
	return strings.Contains(f.fold.String(text), f.query)
}

// Apply returns the matching entries in their original order.
func (f *Filter) Apply(entries []command.Entry) []command.Entry {
	result := make([]command.Entry, 0)
	for _, e := range entries {
		if f.Match(e) {
			result = append(result, e)
		}
	}
	return result
}

// FilterByCategory returns entries in category. An empty category returns
// entries unchanged.
func FilterByCategory(entries []command.Entry, category string) []command.Entry {
	if category == "" {
		return entries
	}
	fold := cases.Fold()
	want := fold.String(category)
	result := make([]command.Entry, 0)
	for _, e := range entries {
		if fold.String(CategoryOf(e)) == want {
			result = append(result, e)
		}
	}
	return result
}
