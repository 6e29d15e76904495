package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

const ellipsis = "..."

// Truncate shortens s to at most width terminal cells, ending in an ellipsis
// when there is room for one. Wide runes count as two cells.
func Truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return truncate.String(s, uint(max(width, 0)))
	}
	return truncate.StringWithTail(s, uint(width), ellipsis)
}
