package theme

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles the viewer draws with.
type Styles struct {
	Title        lipgloss.Style
	Status       lipgloss.Style
	Dim          lipgloss.Style
	Error        lipgloss.Style
	Warn         lipgloss.Style
	OK           lipgloss.Style
	Sidebar      lipgloss.Style
	SidebarFocus lipgloss.Style
	Help         help.Styles
}

// Styles builds the style set for t.
func (t Theme) Styles() Styles {
	fg := lipgloss.Color(t.Foreground)
	dim := lipgloss.Color(t.Dim)
	sidebar := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color(t.Border))

	hs := help.New().Styles
	hs.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color(t.HelpKey))
	hs.FullKey = hs.ShortKey
	hs.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color(t.HelpDesc))
	hs.FullDesc = hs.ShortDesc
	hs.ShortSeparator = lipgloss.NewStyle().Foreground(dim)
	hs.FullSeparator = hs.ShortSeparator

	return Styles{
		Title:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Title)),
		Status:       lipgloss.NewStyle().Foreground(fg),
		Dim:          lipgloss.NewStyle().Foreground(dim),
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
		Warn:         lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warn)),
		OK:           lipgloss.NewStyle().Foreground(lipgloss.Color(t.OK)),
		Sidebar:      sidebar,
		SidebarFocus: sidebar.BorderForeground(lipgloss.Color(t.BorderFocus)),
		Help:         hs,
	}
}
