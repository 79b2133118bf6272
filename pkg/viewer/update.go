package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/flipbook/pkg/app"
	"gitlab.com/tinyland/lab/flipbook/pkg/destination"
	"gitlab.com/tinyland/lab/flipbook/pkg/document"
	"gitlab.com/tinyland/lab/flipbook/pkg/flip"
	"gitlab.com/tinyland/lab/flipbook/pkg/geometry"
	"gitlab.com/tinyland/lab/flipbook/pkg/nav"
	"gitlab.com/tinyland/lab/flipbook/pkg/outline"
	"gitlab.com/tinyland/lab/flipbook/pkg/pagecache"
	"gitlab.com/tinyland/lab/flipbook/pkg/sysinfo"
)

// chromeRows is the control bar plus the status line.
const chromeRows = 2

// Button IDs, relative to the model's zone prefix.
const (
	btnSidebar = "sidebar"
	btnFirst   = "first"
	btnPrev    = "prev"
	btnNext    = "next"
	btnLast    = "last"
	btnGo      = "go"
	zoneGoto   = "goto"
)

// Update routes each message to the component that owns it. Results of
// asynchronous work carry the generation they were started under and are
// dropped when the document has since been replaced.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)

	case OpenMsg:
		cmd := m.reopen(msg.Source)
		return m, cmd
	case app.DocumentOpenedEvent:
		return m.documentOpened(msg)
	case app.PageDecodedEvent:
		return m.pageDecoded(msg)
	case app.DestinationResolvedEvent:
		return m.destinationResolved(msg)
	case outline.NavigateMsg:
		if m.resolver == nil {
			return m, nil
		}
		return m, m.resolver.ResolveCmd(m.ctx, msg.Node)

	case flip.InitMsg:
		if msg.ID != m.flip.ID() {
			return m, nil
		}
		m.flip, _ = m.flip.Update(msg)
		m.log.Debug("flip widget ready", "pages", msg.Pages)
		return m, nil
	case flip.FlipMsg:
		if !m.flip.Latest(msg.ID, msg.Seq) {
			m.log.Debug("dropped stale flip", "page", msg.Page, "seq", msg.Seq)
			return m, nil
		}
		if m.nav.OnFlip(msg.Page) {
			return m, m.syncWindow()
		}
		return m, nil
	case flip.ChangeStateMsg:
		if !m.flip.Latest(msg.ID, msg.Seq) {
			return m, nil
		}
		m.nav.OnChangeState(msg.State.Flipping())
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case app.TickEvent:
		if !m.verbose {
			return m, nil
		}
		return m, tea.Batch(m.sampleMemory(), app.TickCmd(tickInterval))
	case memoryMsg:
		if msg.err != nil {
			m.log.Debug("memory sample failed", "error", msg.err)
			return m, nil
		}
		m.memory = msg.mem
		m.rss.Add(float64(msg.mem.RSS))
		return m, nil
	}

	// Animation frames for the flip widget and cursor blinks for the goto
	// input; each ignores what is not its own.
	var cmds [2]tea.Cmd
	m.flip, cmds[0] = m.flip.Update(msg)
	m.gotoInput, cmds[1] = m.gotoInput.Update(msg)
	return m, tea.Batch(cmds[:]...)
}

func (m Model) resize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.ready = true

	var cmd tea.Cmd
	mobile := m.cfg.MobileBreakpoint > 0 && msg.Width < m.cfg.MobileBreakpoint
	if mobile != m.mobile {
		m.mobile = mobile
		m.sidebar = !mobile && m.cfg.ShowSidebar
		if !m.sidebar && m.focus == focusOutline {
			m.setFocus(focusPages)
		}
		m.flip, cmd = m.flip.SetDual(!mobile)
		m.log.Debug("layout mode changed", "mobile", mobile, "width", msg.Width)
	}
	m.relayout()
	return m, cmd
}

// relayout splits the screen between sidebar and pages and fits the page
// size to what is left.
func (m *Model) relayout() {
	if !m.ready {
		return
	}
	rows := m.height - chromeRows
	if m.verbose {
		rows--
	}
	rows = max(rows, 0)
	cols := m.width
	if m.sidebar {
		sw := min(m.cfg.SidebarWidth, m.width*2/3)
		m.outline = m.outline.SetSize(sw, rows)
		cols -= sw + 1
	}
	m.areaCols, m.areaRows = max(cols, 0), rows

	cw, ch := m.renderer.CellSize()
	pw, ph := geometry.Pixels(m.areaCols, m.areaRows, cw, ch)
	aspect := m.aspect
	if aspect <= 0 {
		aspect = defaultAspect
	}
	pad := geometry.Padding{X: float64(m.cfg.XPadding), Y: float64(m.cfg.YPadding)}
	m.size = geometry.ComputeSize(pw, ph, aspect, m.flip.Dual(), pad)
	m.pageCols, m.pageRows = geometry.Cells(m.size, cw, ch)
}

func (m Model) documentOpened(ev app.DocumentOpenedEvent) (tea.Model, tea.Cmd) {
	if ev.Generation != m.gen {
		m.log.Debug("dropped stale document", "source", ev.Source, "generation", ev.Generation)
		if ev.Handle != nil {
			if err := ev.Handle.Close(); err != nil {
				m.log.Warn("closing stale document", "source", ev.Source, "error", err)
			}
		}
		return m, nil
	}
	if ev.Err != nil {
		m.openErr = ev.Err
		m.log.Error("document unavailable", "source", ev.Source, "error", ev.Err)
		return m, nil
	}

	h := ev.Handle
	n := h.PageCount()
	m.handle = h
	m.aspect = ev.Aspect
	if m.aspect <= 0 {
		m.aspect = defaultAspect
	}
	m.window = pagecache.New(n, m.cfg.Threshold, m.log)
	m.nav = nav.New(n, m.window.Resident)
	m.flip = flip.New(slots{m.window}, m.flipOptions())
	m.outline = m.outline.SetNodes(h.Outline())
	m.resolver = destination.New(h, m.gen, m.log)
	m.version++
	m.relayout()

	m.log.Info("document opened",
		"source", ev.Source,
		"pages", n,
		"outline", document.CountNodes(h.Outline()),
		"aspect", m.aspect,
	)
	return m, tea.Batch(m.flip.Init(), m.syncWindow())
}

func (m Model) pageDecoded(ev app.PageDecodedEvent) (tea.Model, tea.Cmd) {
	if ev.Generation != m.gen {
		return m, nil
	}
	switch m.window.Complete(ev.Index, ev.Ticket, ev.Bitmap, ev.Err) {
	case pagecache.Applied:
		m.version++
		m.decodeMS.Add(float64(ev.Elapsed.Milliseconds()))
		m.nav.SlotResident(ev.Index)
		m.log.Debug("page resident", "page", ev.Index, "elapsed", ev.Elapsed)
	case pagecache.Failed:
		m.version++
		m.status = fmt.Sprintf("page %d could not be rendered", ev.Index+1)
	}
	return m, nil
}

func (m Model) destinationResolved(ev app.DestinationResolvedEvent) (tea.Model, tea.Cmd) {
	if ev.Generation != m.gen || ev.Err != nil {
		return m, nil
	}
	cmd := m.apply(m.nav.NavigateTo(ev.Page))
	if m.mobile && m.sidebar {
		m.sidebar = false
		m.setFocus(focusPages)
		m.relayout()
	}
	return m, cmd
}

// syncWindow recentres the page window on the current page and starts a
// decode for every page that became eligible.
func (m *Model) syncWindow() tea.Cmd {
	if m.handle == nil {
		return nil
	}
	evicted := m.window.Stats().Evicted
	reqs := m.window.Sync(m.nav.Current())
	if m.window.Stats().Evicted != evicted {
		m.version++
	}
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, r := range reqs {
		m.log.Debug("decode requested", "page", r.Index, "ticket", r.Ticket)
		cmds = append(cmds, app.DecodePageCmd(m.ctx, m.handle, r.Index, r.Ticket, m.cfg.RenderScale, m.gen))
	}
	return tea.Batch(cmds...)
}

// apply carries out a navigation intent on the flip widget.
func (m *Model) apply(in nav.Intent) tea.Cmd {
	var cmd tea.Cmd
	switch in.Action {
	case nav.TurnTo:
		m.flip, cmd = m.flip.TurnToPage(in.Page)
		cmds := []tea.Cmd{cmd, m.syncWindow()}
		if m.nav.State().Loading {
			cmds = append(cmds, m.spin())
		}
		return tea.Batch(cmds...)
	case nav.FlipNext:
		m.flip, cmd = m.flip.FlipNext()
	case nav.FlipPrev:
		m.flip, cmd = m.flip.FlipPrev()
	}
	return cmd
}

func (m *Model) busy() bool {
	if m.openErr != nil {
		return false
	}
	return m.handle == nil || m.nav.State().Loading || !m.flip.Initialized()
}

func (m *Model) spin() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	m.gotoInput.Blur()
	m.outline = m.outline.Blur()
	switch f {
	case focusGoto:
		return m.gotoInput.Focus()
	case focusOutline:
		m.outline = m.outline.Focus()
	}
	return nil
}

func (m *Model) toggleSidebar() {
	m.sidebar = !m.sidebar
	if !m.sidebar && m.focus == focusOutline {
		m.setFocus(focusPages)
	}
	m.relayout()
}

// submitGoto jumps to the typed page. Input the controller rejects leaves
// everything as it is, like pressing a disabled button.
func (m *Model) submitGoto() tea.Cmd {
	n, ok := m.nav.ParseGoto(m.gotoInput.Value())
	if !ok {
		return nil
	}
	cmd := m.apply(m.nav.Goto(n))
	m.gotoInput.SetValue("")
	m.setFocus(focusPages)
	return cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.focus {
	case focusGoto:
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.submitGoto()
		case tea.KeyEsc:
			m.setFocus(focusPages)
			return m, nil
		}
		var cmd tea.Cmd
		m.gotoInput, cmd = m.gotoInput.Update(msg)
		return m, cmd

	case focusOutline:
		switch {
		case key.Matches(msg, m.keys.Outline), key.Matches(msg, m.keys.Escape):
			m.setFocus(focusPages)
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.outline, cmd = m.outline.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Escape):
		m.showHelp = false
	case key.Matches(msg, m.keys.Next):
		return m, m.apply(m.nav.Next())
	case key.Matches(msg, m.keys.Prev):
		return m, m.apply(m.nav.Previous())
	case key.Matches(msg, m.keys.First):
		return m, m.apply(m.nav.First())
	case key.Matches(msg, m.keys.Last):
		return m, m.apply(m.nav.Last())
	case key.Matches(msg, m.keys.Goto):
		if m.handle != nil && m.window.Len() > 0 {
			return m, m.setFocus(focusGoto)
		}
	case key.Matches(msg, m.keys.Outline):
		if m.sidebar && m.outline.Ready() && m.outline.Len() > 0 {
			m.setFocus(focusOutline)
		}
	case key.Matches(msg, m.keys.Sidebar):
		m.toggleSidebar()
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
		for _, b := range m.buttons() {
			if !b.Enabled {
				continue
			}
			if zi := m.zones.Get(b.ID); zi != nil && zi.InBounds(msg) {
				return m.press(strings.TrimPrefix(b.ID, m.prefix))
			}
		}
		if zi := m.zones.Get(m.prefix + zoneGoto); zi != nil && zi.InBounds(msg) && m.handle != nil {
			return m, m.setFocus(focusGoto)
		}
	}
	if !m.sidebar {
		return m, nil
	}
	var cmd tea.Cmd
	m.outline, cmd = m.outline.Update(msg)
	return m, cmd
}

// press acts on a control bar button.
func (m Model) press(id string) (tea.Model, tea.Cmd) {
	switch id {
	case btnSidebar:
		m.toggleSidebar()
	case btnFirst:
		return m, m.apply(m.nav.First())
	case btnPrev:
		return m, m.apply(m.nav.Previous())
	case btnNext:
		return m, m.apply(m.nav.Next())
	case btnLast:
		return m, m.apply(m.nav.Last())
	case btnGo:
		return m, m.submitGoto()
	}
	return m, nil
}

func (m Model) sampleMemory() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		mem, err := sysinfo.Sample(ctx)
		return memoryMsg{mem: mem, err: err}
	}
}
