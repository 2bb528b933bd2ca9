package tui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/theme"
)

type styles struct {
	base      tcell.Style
	muted     tcell.Style
	header    tcell.Style
	selected  tcell.Style
	inline    tcell.Style
	statusMsg map[platform.Severity]tcell.Style
}

func stylesFor(t theme.Snapshot) styles {
	color := func(name, fallback string) tcell.Color {
		return tcell.GetColor(t.Color(name, fallback))
	}
	bg := color("background", "#1e1e2e")
	fg := color("foreground", "#cdd6f4")
	base := tcell.StyleDefault.Background(bg).Foreground(fg)

	return styles{
		base:     base,
		muted:    base.Foreground(color("muted", "#6c7086")),
		header:   base.Foreground(color("accent", "#89b4fa")).Bold(true),
		selected: base.Background(color("selection", "#313244")).Bold(true),
		inline:   base.Foreground(color("accent", "#89b4fa")),
		statusMsg: map[platform.Severity]tcell.Style{
			platform.SeverityInfo:    base.Foreground(color("muted", "#6c7086")),
			platform.SeveritySuccess: base.Foreground(color("success", "#a6e3a1")),
			platform.SeverityError:   base.Foreground(color("error", "#f38ba8")),
		},
	}
}
