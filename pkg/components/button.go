package components

import (
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

var (
	buttonStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#E5E7EB"))
	buttonPrimaryStyle = buttonStyle.
				Bold(true).
				Background(lipgloss.Color("#7C3AED"))
	buttonDisabledStyle = buttonStyle.
				Foreground(lipgloss.Color("#4B5563"))
)

// Button is a clickable label in the control bar.
type Button struct {
	ID      string
	Label   string
	Enabled bool
	Primary bool
}

// Render draws the button and, when z is non-nil and the button is
// enabled, marks it as a mouse zone under its ID.
func (b Button) Render(z *zone.Manager) string {
	var s string
	switch {
	case !b.Enabled:
		s = buttonDisabledStyle.Render(b.Label)
	case b.Primary:
		s = buttonPrimaryStyle.Render(b.Label)
	default:
		s = buttonStyle.Render(b.Label)
	}
	if z == nil || !b.Enabled {
		return s
	}
	return z.Mark(b.ID, s)
}

// Bar joins rendered items horizontally with a one-cell gap and centres
// the result in width cells.
func Bar(width int, items ...string) string {
	var parts []string
	for i, it := range items {
		if it == "" {
			continue
		}
		if i > 0 && len(parts) > 0 {
			parts = append(parts, " ")
		}
		parts = append(parts, it)
	}
	row := lipgloss.JoinHorizontal(lipgloss.Center, parts...)
	if VisibleLen(row) > width {
		return Truncate(row, width)
	}
	return PadCenter(row, width)
}
