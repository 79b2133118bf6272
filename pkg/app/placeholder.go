package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	placeholderTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	placeholderDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Placeholder renders a title and an optional detail line centred in a
// width x height block. It stands in for pages without a bitmap and for
// whole-screen states such as a document that failed to open.
func Placeholder(title, detail string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	var body []string
	body = append(body, placeholderTitle.Render(title))
	if detail != "" && height > 1 {
		body = append(body, placeholderDim.Render(detail))
	}

	lines := make([]string, 0, height)
	for i := 0; i < (height-len(body))/2; i++ {
		lines = append(lines, "")
	}
	lines = append(lines, body...)
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(lines, "\n"))
}
