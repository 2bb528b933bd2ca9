package tui

import (
	"fmt"
	"strings"

	"github.com/dshills/keyed/internal/command"
)

const (
	prompt      = "> "
	listTop     = 2
	indent      = 2
	subtitleGap = 2
)

// draw paints the whole screen.
func (u *UI) draw() {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := u.screen
	w, h := s.Size()
	st := stylesFor(u.launcher.Themes().Current())
	s.SetStyle(st.base)
	s.Clear()
	if w <= 0 || h <= 0 {
		return
	}

	// Query line
	x := drawText(s, 0, 0, w, prompt, st.header)
	x += drawText(s, x, 0, w-x, string(u.query), st.base)
	if u.view == nil {
		s.ShowCursor(min(x, w-1), 0)
	} else {
		s.HideCursor()
	}

	// Separator
	for i := 0; i < w; i++ {
		s.SetContent(i, 1, '─', nil, st.muted)
	}

	body := h - listTop - 1
	if u.view != nil {
		u.drawView(st, w, body)
	} else {
		u.drawList(st, w, body)
	}

	u.drawStatus(st, w, h-1)
	s.Show()
}

func (u *UI) drawList(st styles, w, body int) {
	if body <= 0 {
		return
	}
	if len(u.items) == 0 {
		drawText(u.screen, indent, listTop, w-indent, "No results", st.muted)
		return
	}

	sel := u.selectedRow()
	if sel < u.offset {
		u.offset = sel
		// keep the category header visible when moving up into a group
		if u.offset > 0 && u.rows[u.offset-1].header != "" {
			u.offset--
		}
	}
	if sel >= u.offset+body {
		u.offset = sel - body + 1
	}

	for i := 0; i < body && u.offset+i < len(u.rows); i++ {
		y := listTop + i
		r := u.rows[u.offset+i]
		if r.header != "" {
			drawText(u.screen, 0, y, w, r.header, st.header)
			continue
		}

		selected := r.item == u.cursor.Index()
		style, sub := st.base, st.muted
		e := u.items[r.item]
		title := e.Title
		if title == "" {
			title = e.ID
		}
		if r.item == 0 && u.inlineDoc != nil {
			title = "= " + u.inlineDoc.Title
			style = st.inline
		}
		if selected {
			style, sub = st.selected, st.selected
			fillRow(u.screen, 0, y, w, style)
		}
		x := indent + drawText(u.screen, indent, y, w-indent, title, style)
		if subtitle := subtitleOf(e); subtitle != "" && x+subtitleGap < w {
			drawText(u.screen, x+subtitleGap, y, w-x-subtitleGap, subtitle, sub)
		}
	}
}

func subtitleOf(e command.Entry) string {
	if e.Subtitle != "" {
		return e.Subtitle
	}
	return e.Description
}

// selectedRow returns the row index of the selected item.
func (u *UI) selectedRow() int {
	for i, r := range u.rows {
		if r.header == "" && r.item == u.cursor.Index() {
			return i
		}
	}
	return 0
}

func (u *UI) drawView(st styles, w, body int) {
	lines := strings.Split(strings.TrimRight(u.view.String(), "\n"), "\n")
	for i := 0; i < body && i < len(lines); i++ {
		style := st.base
		if i == 0 && u.view.Title != "" {
			style = st.header
		}
		drawText(u.screen, 0, listTop+i, w, lines[i], style)
	}
}

func (u *UI) drawStatus(st styles, w, y int) {
	if y <= listTop {
		return
	}
	msg, style := u.status.message, st.statusMsg[u.status.severity]
	if msg == "" {
		style = st.muted
		switch {
		case u.view != nil:
			msg = u.viewTitle + "  (esc to go back)"
		case len(u.items) == 1:
			msg = "1 result"
		default:
			msg = fmt.Sprintf("%d results", len(u.items))
		}
	}
	drawText(u.screen, 0, y, w, msg, style)
}
