// Package outline is the table of contents sidebar. Entries with children
// can be expanded and collapsed; choosing an entry emits NavigateMsg and
// leaves the jump itself to the host.
package outline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/flipbook/pkg/components"
	"gitlab.com/tinyland/lab/flipbook/pkg/document"
)

// NavigateMsg asks the host to jump to Node's destination.
type NavigateMsg struct {
	Node document.OutlineNode
}

// KeyMap binds the sidebar's keys.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Select   key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Expand:   key.NewBinding(key.WithKeys("right", "l", " "), key.WithHelp("→", "expand")),
		Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "collapse")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "go")),
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	rowStyle      = lipgloss.NewStyle()
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	skeletonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
)

// row is one visible line of the flattened tree.
type row struct {
	path  string
	depth int
	node  *document.OutlineNode
}

// Model is the sidebar state.
type Model struct {
	Title string
	Keys  KeyMap

	nodes    []document.OutlineNode
	expanded map[string]bool
	rows     []row
	cursor   int
	ready    bool
	focused  bool

	vp     viewport.Model
	zones  *zone.Manager
	prefix string
	width  int
	height int
}

// New returns an empty sidebar. z may be nil to disable mouse support.
func New(z *zone.Manager) Model {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	m := Model{
		Title:    "Contents",
		Keys:     DefaultKeyMap(),
		expanded: make(map[string]bool),
		vp:       vp,
		zones:    z,
	}
	if z != nil {
		m.prefix = z.NewPrefix()
	}
	return m
}

// SetNodes replaces the tree. Everything starts collapsed and the cursor
// returns to the top.
func (m Model) SetNodes(nodes []document.OutlineNode) Model {
	m.nodes = nodes
	m.expanded = make(map[string]bool)
	m.cursor = 0
	m.ready = true
	m.flatten()
	return m
}

// Reset returns the sidebar to its loading skeleton.
func (m Model) Reset() Model {
	m.nodes = nil
	m.rows = nil
	m.cursor = 0
	m.ready = false
	m.refresh()
	return m
}

func (m Model) Ready() bool   { return m.ready }
func (m Model) Focused() bool { return m.focused }
func (m Model) Len() int      { return len(m.rows) }
func (m Model) Cursor() int   { return m.cursor }

// Focus lets the sidebar take keyboard input.
func (m Model) Focus() Model {
	m.focused = true
	m.refresh()
	return m
}

// Blur returns keyboard input to the host.
func (m Model) Blur() Model {
	m.focused = false
	m.refresh()
	return m
}

// SetSize sets the outer size including the title line.
func (m Model) SetSize(width, height int) Model {
	m.width, m.height = width, height
	m.vp.Width = max(width, 0)
	m.vp.Height = max(height-1, 0)
	m.refresh()
	return m
}

// Walk visits every node depth-first.
func (m Model) Walk(fn func(node *document.OutlineNode, depth int) bool) {
	document.Walk(m.nodes, fn)
}

// Selected returns the node under the cursor.
func (m Model) Selected() (document.OutlineNode, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return document.OutlineNode{}, false
	}
	return *m.rows[m.cursor].node, true
}

// Expanded reports whether the node at path is open. Paths are the child
// indexes from the root joined by "/", for example "0/2".
func (m Model) Expanded(path string) bool { return m.expanded[path] }

// Toggle opens or closes the entry under the cursor.
func (m Model) Toggle() Model {
	if m.cursor >= len(m.rows) {
		return m
	}
	r := m.rows[m.cursor]
	if len(r.node.Children) == 0 {
		return m
	}
	m.expanded[r.path] = !m.expanded[r.path]
	m.flatten()
	return m
}

// Update handles keys while focused and mouse events at any time.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.Keys.Up):
			m.move(-1)
		case key.Matches(msg, m.Keys.Down):
			m.move(+1)
		case key.Matches(msg, m.Keys.Expand):
			if r, ok := m.row(); ok && len(r.node.Children) > 0 && !m.expanded[r.path] {
				m = m.Toggle()
			}
		case key.Matches(msg, m.Keys.Collapse):
			m.collapse()
		case key.Matches(msg, m.Keys.Select):
			return m, m.navigate()
		}
		return m, nil

	case tea.MouseMsg:
		if m.zones != nil && msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			for i, r := range m.rows {
				if zi := m.zones.Get(m.zoneID(r.path)); zi != nil && zi.InBounds(msg) {
					m.cursor = i
					// A click both opens the entry and jumps to it.
					if len(r.node.Children) > 0 {
						m = m.Toggle()
					}
					m.refresh()
					return m, m.navigate()
				}
			}
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) row() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) move(d int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+d, 0), len(m.rows)-1)
	m.refresh()
	if m.cursor < m.vp.YOffset {
		m.vp.SetYOffset(m.cursor)
	} else if m.cursor >= m.vp.YOffset+m.vp.Height {
		m.vp.SetYOffset(m.cursor - m.vp.Height + 1)
	}
}

// collapse closes the entry under the cursor, or moves to its parent when
// it is already closed.
func (m *Model) collapse() {
	r, ok := m.row()
	if !ok {
		return
	}
	if m.expanded[r.path] {
		m.expanded[r.path] = false
		m.flatten()
		return
	}
	i := strings.LastIndex(r.path, "/")
	if i < 0 {
		return
	}
	parent := r.path[:i]
	for j, pr := range m.rows {
		if pr.path == parent {
			m.cursor = j
			break
		}
	}
	m.refresh()
}

func (m Model) navigate() tea.Cmd {
	r, ok := m.row()
	if !ok || r.node.Dest == nil {
		return nil
	}
	node := *r.node
	return func() tea.Msg { return NavigateMsg{Node: node} }
}

// flatten rebuilds the visible rows from the tree and expansion state.
func (m *Model) flatten() {
	m.rows = nil
	var visit func(nodes []document.OutlineNode, prefix string, depth int)
	visit = func(nodes []document.OutlineNode, prefix string, depth int) {
		for i := range nodes {
			p := strconv.Itoa(i)
			if prefix != "" {
				p = prefix + "/" + p
			}
			m.rows = append(m.rows, row{path: p, depth: depth, node: &nodes[i]})
			if m.expanded[p] {
				visit(nodes[i].Children, p, depth+1)
			}
		}
	}
	visit(m.nodes, "", 0)
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
	m.refresh()
}

func (m Model) zoneID(path string) string {
	return fmt.Sprintf("%soutline:%s", m.prefix, path)
}

// refresh re-renders the rows into the viewport.
func (m *Model) refresh() {
	w := m.vp.Width
	if w <= 0 {
		return
	}
	var b strings.Builder
	if !m.ready {
		// Loading skeleton: alternate top level and nested bars.
		for i := 0; i < m.vp.Height; i++ {
			indent := 1
			if i%3 != 0 {
				indent = 3
			}
			bar := strings.Repeat("▒", max(w-indent-1, 0))
			b.WriteString(strings.Repeat(" ", indent) + skeletonStyle.Render(bar))
			if i < m.vp.Height-1 {
				b.WriteByte('\n')
			}
		}
		m.vp.SetContent(b.String())
		return
	}
	for i, r := range m.rows {
		marker := "  "
		if len(r.node.Children) > 0 {
			marker = "▸ "
			if m.expanded[r.path] {
				marker = "▾ "
			}
		}
		line := components.Fit(components.Indent(marker+r.node.Title, r.depth), w)
		style := rowStyle
		if r.node.Dest == nil {
			style = headerStyle
		}
		if i == m.cursor && m.focused {
			style = cursorStyle
		}
		line = style.Render(line)
		if m.zones != nil {
			line = m.zones.Mark(m.zoneID(r.path), line)
		}
		b.WriteString(line)
		if i < len(m.rows)-1 {
			b.WriteByte('\n')
		}
	}
	m.vp.SetContent(b.String())
}

// View renders the title line and the scrolled rows.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	title := titleStyle.Render(components.Truncate(m.Title, max(m.width-2, 1)))
	if m.height == 1 {
		return components.Fit(title, m.width)
	}
	return lipgloss.JoinVertical(lipgloss.Left, components.Fit(title, m.width), m.vp.View())
}
