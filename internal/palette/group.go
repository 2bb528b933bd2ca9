package palette

import "github.com/dshills/keyed/internal/command"

// DefaultCategory holds entries that declare no category.
const DefaultCategory = "Other"

// Group is a run of entries sharing a category.
type Group struct {
	Category string
	Entries  []command.Entry
}

// CategoryOf returns the display category of e.
func CategoryOf(e command.Entry) string {
	if e.Category == "" {
		return DefaultCategory
	}
	return e.Category
}

// GroupByCategory partitions entries by category. Groups are ordered by
// first appearance and entries keep their relative order.
func GroupByCategory(entries []command.Entry) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, e := range entries {
		cat := CategoryOf(e)
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, Group{Category: cat})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// Categories returns the distinct categories of entries in first-seen
// order.
func Categories(entries []command.Entry) []string {
	groups := GroupByCategory(entries)
	result := make([]string, len(groups))
	for i, g := range groups {
		result[i] = g.Category
	}
	return result
}

// Flatten returns the entries of groups in display order. The cursor
// indexes this list.
func Flatten(groups []Group) []command.Entry {
	var result []command.Entry
	for _, g := range groups {
		result = append(result, g.Entries...)
	}
	return result
}
