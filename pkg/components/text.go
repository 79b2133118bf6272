// Package components holds small rendering helpers shared by the viewer
// and the outline sidebar: ANSI-aware text fitting, clickable buttons and
// compact meters for the debug footer.
package components

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// VisibleLen returns the width of s in terminal cells, ignoring escape
// sequences and counting wide characters as two.
func VisibleLen(s string) int {
	return ansi.StringWidth(s)
}

// Truncate cuts s to at most width cells, ending in an ellipsis when
// something was cut. Escape sequences before the cut are preserved.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, Ellipsis)
}

// Fit truncates or right-pads s to exactly width cells.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = Truncate(s, width)
	if n := VisibleLen(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s
}

// PadCenter centres s within width cells; an odd remainder goes right.
// Wider strings are returned unchanged.
func PadCenter(s string, width int) string {
	n := VisibleLen(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

// Indent prefixes s with depth levels of two-space indentation.
func Indent(s string, depth int) string {
	if depth <= 0 {
		return s
	}
	return strings.Repeat("  ", depth) + s
}
