package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/keyed/internal/app"
	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/palette"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/plugin"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	inlineStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// severityStyle picks the style for a notification.
func severityStyle(s platform.Severity) lipgloss.Style {
	switch s {
	case platform.SeveritySuccess:
		return successStyle
	case platform.SeverityError:
		return errorStyle
	default:
		return lipgloss.NewStyle()
	}
}

// notifier prints notifications to w.
func notifier(w io.Writer) platform.NotifySink {
	return func(message string, severity platform.Severity) {
		fmt.Fprintln(w, severityStyle(severity).Render(message))
	}
}

// printResults writes the inline result and the grouped entries.
func printResults(w io.Writer, res app.Results) {
	if res.Inline.Active() {
		fmt.Fprintln(w, headerStyle.Render("Inline"))
		title := res.Inline.Entry.Title
		if doc := res.Inline.Document; doc != nil && doc.Title != "" {
			title = "= " + doc.Title
		}
		fmt.Fprintf(w, "  %s  %s\n", inlineStyle.Render(title), mutedStyle.Render(res.Inline.Entry.ID))
		if res.Inline.Err != nil {
			fmt.Fprintf(w, "  %s\n", errorStyle.Render(res.Inline.Err.Error()))
		}
	}
	printGroups(w, res.Groups)
	if len(res.Entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No results"))
	}
}

func printGroups(w io.Writer, groups []palette.Group) {
	for _, g := range groups {
		fmt.Fprintln(w, headerStyle.Render(g.Category))
		for _, e := range g.Entries {
			printEntry(w, e)
		}
	}
}

// filterGroups keeps the entries in category, matched case-insensitively.
func filterGroups(groups []palette.Group, category string) []palette.Group {
	return palette.GroupByCategory(palette.FilterByCategory(palette.Flatten(groups), category))
}

func printEntry(w io.Writer, e command.Entry) {
	title := e.Title
	if title == "" {
		title = e.ID
	}
	line := "  " + titleStyle.Render(title)
	if sub := e.Subtitle; sub != "" {
		line += "  " + sub
	}
	line += "  " + mutedStyle.Render(fmt.Sprintf("%s [%s]", e.ID, e.Mode()))
	fmt.Fprintln(w, line)
}

// printDocument renders a view document as text.
func printDocument(w io.Writer, doc *command.Document) {
	if doc == nil {
		return
	}
	if doc.Title != "" {
		fmt.Fprintln(w, headerStyle.Render(doc.Title))
	}
	if doc.Body != "" {
		fmt.Fprintln(w, strings.TrimRight(doc.Body, "\n"))
	}
	for _, it := range doc.Items {
		line := "  " + it.Title
		if it.Subtitle != "" {
			line += "  " + mutedStyle.Render(it.Subtitle)
		}
		if it.Accessory != "" {
			line += "  " + mutedStyle.Render("["+it.Accessory+"]")
		}
		fmt.Fprintln(w, line)
	}
}

// printPlugins writes one row per plugin. The state column is last so its
// color does not disturb the alignment.
func printPlugins(w io.Writer, infos []plugin.Info) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSOURCE\tENABLED\tSTATE")
	for _, info := range infos {
		state := info.Status.State.String()
		style := successStyle
		switch info.Status.State {
		case plugin.StateError:
			style = errorStyle
			state += ": " + info.Status.Error
		case plugin.StateLoading, plugin.StateDisabled:
			style = warnStyle
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			info.ID, info.Name, info.Version, info.Source, info.Enabled, style.Render(state))
	}
	tw.Flush()
}
