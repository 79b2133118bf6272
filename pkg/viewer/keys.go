package viewer

import "github.com/charmbracelet/bubbles/key"

// KeyMap binds the viewer's keys. The outline sidebar has its own map,
// active while it has focus.
type KeyMap struct {
	Next    key.Binding
	Prev    key.Binding
	First   key.Binding
	Last    key.Binding
	Goto    key.Binding
	Outline key.Binding
	Sidebar key.Binding
	Escape  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next:    key.NewBinding(key.WithKeys("right", "l", "pgdown", " "), key.WithHelp("→/l", "next")),
		Prev:    key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "prev")),
		First:   key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first")),
		Last:    key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last")),
		Goto:    key.NewBinding(key.WithKeys("g", ":"), key.WithHelp("g", "go to page")),
		Outline: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "contents")),
		Sidebar: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle sidebar")),
		Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Goto, k.Outline, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.First, k.Last},
		{k.Goto, k.Outline, k.Sidebar, k.Escape},
		{k.Help, k.Quit},
	}
}
