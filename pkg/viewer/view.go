package viewer

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/flipbook/pkg/app"
	"gitlab.com/tinyland/lab/flipbook/pkg/components"
	fbimage "gitlab.com/tinyland/lab/flipbook/pkg/image"
	"gitlab.com/tinyland/lab/flipbook/pkg/pagecache"
	"gitlab.com/tinyland/lab/flipbook/pkg/sysinfo"
)

// View renders the pages, the sidebar and the control bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	body := m.pagesView()
	if m.sidebar {
		st := m.styles.Sidebar
		if m.focus == focusOutline {
			st = m.styles.SidebarFocus
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top, st.Render(m.outline.View()), body)
	}

	parts := []string{body, m.controlBar(), m.statusLine()}
	if m.verbose {
		parts = append(parts, m.footer())
	}
	return m.zones.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) pagesView() string {
	w, h := m.areaCols, m.areaRows
	switch {
	case w <= 0 || h <= 0:
		return ""
	case m.openErr != nil:
		return app.Placeholder("Document unavailable", m.openErr.Error(), w, h)
	case m.handle == nil:
		return app.Placeholder(m.spinner.View()+" Opening", m.source, w, h)
	case m.showHelp:
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, m.help.FullHelpView(m.keys.FullHelp()))
	case m.window.Len() == 0:
		return app.Placeholder("Empty document", m.source, w, h)
	case !m.flip.Initialized():
		return app.Placeholder(m.spinner.View()+" Loading", "", w, h)
	case m.size.Empty():
		return app.Placeholder("Window too small", fmt.Sprintf("%dx%d", m.width, m.height), w, h)
	}

	left, right := m.flip.Visible()
	spread := 1
	if m.flip.Dual() {
		spread = 2
	}
	cols, rows := m.pageCols*spread, m.pageRows
	pw, ph := int(m.size.Width), int(m.size.Height)
	id := fmt.Sprintf("g%d/v%d/s%d/p%.3f/%d-%d/%dx%d", m.gen, m.version, m.flip.Seq(), m.flip.Progress(), left, right, pw, ph)

	out, err := m.renderer.Render(id, cols, rows, func() image.Image {
		return m.flip.Frame(pw, ph)
	})
	if err != nil {
		if !errors.Is(err, fbimage.ErrDisabled) {
			m.log.Debug("frame not rendered", "error", err)
		}
		return app.Placeholder(m.pageTitle(left, right), m.slotDetail(left), w, h)
	}
	return place(out, cols, rows, w, h, m.renderer.Protocol().Inline())
}

// place centres a rendered picture of cols x rows cells in the page area.
// Inline protocols emit a single escape sequence that the terminal expands
// to the full box, so it goes on the first row with blank rows below.
func place(pic string, cols, rows, width, height int, inline bool) string {
	if !inline {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, pic)
	}
	lines := make([]string, height)
	top := max((height-rows)/2, 0)
	if top < height {
		lines[top] = strings.Repeat(" ", max((width-cols)/2, 0)) + pic
	}
	return strings.Join(lines, "\n")
}

func (m Model) pageTitle(left, right int) string {
	if right >= 0 {
		return fmt.Sprintf("Pages %d-%d", left+1, right+1)
	}
	return fmt.Sprintf("Page %d", left+1)
}

// slotDetail explains a page shown without a picture.
func (m Model) slotDetail(i int) string {
	s := m.window.Slot(i)
	switch {
	case s.Err != nil:
		return "could not be rendered"
	case s.State == pagecache.Pending:
		return "loading"
	case s.State == pagecache.Resident:
		return fmt.Sprintf("%dx%d", s.Bitmap.Bounds().Dx(), s.Bitmap.Bounds().Dy())
	default:
		return ""
	}
}

func (m Model) buttons() []components.Button {
	_, gotoOK := m.nav.ParseGoto(m.gotoInput.Value())
	open := m.handle != nil
	return []components.Button{
		{ID: m.prefix + btnSidebar, Label: "☰", Enabled: open},
		{ID: m.prefix + btnFirst, Label: "⏮", Enabled: m.nav.CanFirst()},
		{ID: m.prefix + btnPrev, Label: "◀", Enabled: m.nav.CanPrevious()},
		{ID: m.prefix + btnNext, Label: "▶", Enabled: m.nav.CanNext()},
		{ID: m.prefix + btnLast, Label: "⏭", Enabled: m.nav.CanLast()},
		{ID: m.prefix + btnGo, Label: "Go", Enabled: gotoOK, Primary: true},
	}
}

func (m Model) controlBar() string {
	b := m.buttons()
	items := make([]string, len(b))
	for i := range b {
		items[i] = b[i].Render(m.zones)
	}

	st := m.nav.State()
	label := "-"
	if st.PageCount > 0 {
		label = fmt.Sprintf("%d of %d", st.Current+1, st.PageCount)
	}
	label = m.styles.Status.Render(label)

	input := m.gotoInput.View()
	if m.focus != focusGoto && m.gotoInput.Value() == "" {
		input = m.styles.Dim.Render("g: page")
	}
	input = m.zones.Mark(m.prefix+zoneGoto, input)

	return components.Bar(m.width, items[0], items[1], items[2], label, items[3], items[4], input, items[5])
}

func (m Model) statusLine() string {
	st := m.nav.State()
	var s string
	switch {
	case m.openErr != nil:
		s = m.styles.Error.Render("document unavailable")
	case st.Loading:
		s = m.spinner.View() + " " + m.styles.Dim.Render(fmt.Sprintf("loading page %d", st.Current+1))
	case m.status != "":
		s = m.styles.Warn.Render(m.status)
	default:
		s = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return components.Fit(" "+s, m.width)
}

// footer is the debug line shown with -verbose.
func (m Model) footer() string {
	ws := m.window.Stats()
	parts := []string{
		fmt.Sprintf("resident %d/%d", m.window.ResidentCount(), 2*m.window.Threshold()+1),
		fmt.Sprintf("pending %d", m.window.PendingCount()),
		fmt.Sprintf("req %d ok %d drop %d fail %d evict %d", ws.Requested, ws.Applied, ws.Discarded, ws.Failed, ws.Evicted),
	}
	if m.decodeMS.Len() > 0 {
		vals := m.decodeMS.Values()
		parts = append(parts, fmt.Sprintf("decode %s %.0fms", components.Spark(vals, 12), vals[len(vals)-1]))
	}
	cs := m.renderer.Cache().Stats()
	parts = append(parts, fmt.Sprintf("frames %d hit %d miss %d", cs.Entries, cs.Hits, cs.Misses))
	if m.memory.RSS > 0 {
		parts = append(parts, fmt.Sprintf("rss %s %s peak %s %s",
			sysinfo.HumanBytes(m.memory.RSS), components.Spark(m.rss.Values(), 12),
			sysinfo.HumanBytes(uint64(m.rss.Max())), components.Meter(m.memory.Share(), 1, 8)))
	}
	return components.Fit(m.styles.Dim.Render(" "+strings.Join(parts, " · ")), m.width)
}
