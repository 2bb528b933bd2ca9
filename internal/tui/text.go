package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

const ellipsis = '…'

// drawText writes s at (x, y) within maxWidth cells, one grapheme cluster
// per cell group, and truncates with an ellipsis. It returns the number of
// cells used.
func drawText(s tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) int {
	if maxWidth <= 0 {
		return 0
	}
	truncate := uniseg.StringWidth(text) > maxWidth
	limit := maxWidth
	if truncate {
		limit--
	}

	used := 0
	state := -1
	rest := text
	for rest != "" {
		var cluster string
		var width int
		cluster, rest, width, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if width == 0 {
			continue
		}
		if used+width > limit {
			break
		}
		runes := []rune(cluster)
		s.SetContent(x+used, y, runes[0], runes[1:], style)
		used += width
	}
	if truncate {
		s.SetContent(x+used, y, ellipsis, nil, style)
		used++
	}
	return used
}

// fillRow paints the rest of row y from x with style.
func fillRow(s tcell.Screen, x, y, width int, style tcell.Style) {
	for ; x < width; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}
