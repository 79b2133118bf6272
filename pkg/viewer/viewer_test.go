package viewer

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"gitlab.com/tinyland/lab/flipbook/pkg/app"
	"gitlab.com/tinyland/lab/flipbook/pkg/config"
	"gitlab.com/tinyland/lab/flipbook/pkg/document"
	"gitlab.com/tinyland/lab/flipbook/pkg/document/mock"
	"gitlab.com/tinyland/lab/flipbook/pkg/flip"
	"gitlab.com/tinyland/lab/flipbook/pkg/outline"
	"gitlab.com/tinyland/lab/flipbook/pkg/pagecache"
	"gitlab.com/tinyland/lab/flipbook/pkg/sysinfo"
	"gitlab.com/tinyland/lab/flipbook/pkg/terminal"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Viewer.FlipDuration = config.Duration{Duration: 2 * time.Millisecond}
	cfg.Viewer.FlipFrames = 2
	return cfg
}

func testCaps() terminal.Capabilities {
	return terminal.Capabilities{
		Protocol: terminal.ProtocolHalfblocks,
		Size:     terminal.Size{Cols: 160, Rows: 50, CellW: 8, CellH: 16},
	}
}

func newViewer(b document.Backend, verbose bool) Model {
	return New(Options{Config: testConfig(), Backend: b, Source: "book.pdf", Caps: testCaps(), Verbose: verbose})
}

// drain runs cmd and returns the messages it yields, flattening batches.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// pump feeds every message cmd produces back into the model until nothing
// is left. Spinner and clock ticks are dropped so the loop ends.
func pump(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	m, _ = deliver(t, m, drain(cmd))
	return m
}

// deliver feeds queue, and everything it leads to, into the model in
// order and returns the messages delivered.
func deliver(t *testing.T, m Model, queue []tea.Msg) (Model, []tea.Msg) {
	t.Helper()
	var seen []tea.Msg
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("messages did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case spinner.TickMsg, app.TickEvent, memoryMsg, tea.QuitMsg:
			continue
		}
		seen = append(seen, msg)
		next, c := m.Update(msg)
		m = next.(Model)
		queue = append(queue, drain(c)...)
	}
	return m, seen
}

func flipReports(msgs []tea.Msg) []int {
	var out []int
	for _, msg := range msgs {
		if f, ok := msg.(flip.FlipMsg); ok {
			out = append(out, f.Page)
		}
	}
	return out
}

// send delivers msg and pumps whatever it starts.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return pump(t, next.(Model), cmd)
}

// press delivers a key and discards the command, for keys whose only
// follow-up is a cursor blink.
func press(m Model, msg tea.KeyMsg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func opened(t *testing.T, b *mock.Backend, width, height int) Model {
	t.Helper()
	m := newViewer(b, false)
	next, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	m = next.(Model)
	return pump(t, m, m.Init())
}

func tenPages() *mock.Backend {
	return &mock.Backend{Pages: 10, Width: 70, Height: 100}
}

func residentSet(w *pagecache.Window) []int {
	var out []int
	for i := 0; i < w.Len(); i++ {
		if w.Resident(i) {
			out = append(out, i)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestViewBeforeSize(t *testing.T) {
	m := newViewer(tenPages(), false)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want Initializing...", got)
	}
}

func TestOpenFillsWindow(t *testing.T) {
	b := tenPages()
	m := opened(t, b, 160, 50)

	if m.Err() != nil {
		t.Fatalf("open failed: %v", m.Err())
	}
	if m.Handle() == nil || m.Handle().PageCount() != 10 {
		t.Fatal("document not open")
	}
	if got := residentSet(m.Window()); !equalInts(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("resident = %v, want pages 0..4", got)
	}
	if len(b.Renders()) != 5 {
		t.Errorf("renders = %v, want 5", b.Renders())
	}
	st := m.Nav()
	if st.Current != 0 || st.Loading || st.PageCount != 10 {
		t.Errorf("nav = %+v", st)
	}
	if !m.Flip().Initialized() {
		t.Error("flip widget not initialised")
	}
	if !m.Outline().Ready() || m.Outline().Len() == 0 {
		t.Error("outline not loaded")
	}
}

func TestGeometryFollowsSidebar(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)

	// 127x48 cells of 8x16 px, dual, aspect 0.7: width limits at 448.
	s := m.PageSize()
	if math.Abs(s.Width-448) > 0.01 || math.Abs(s.Height-640) > 0.01 {
		t.Errorf("PageSize = %+v, want 448x640", s)
	}
	if cols, rows := m.PageCells(); cols != 56 || rows != 40 {
		t.Errorf("PageCells = %dx%d, want 56x40", cols, rows)
	}

	m = send(t, m, runes("t"))
	if m.SidebarVisible() {
		t.Fatal("sidebar still visible after toggle")
	}
	wide := m.PageSize()
	if math.Abs(wide.Height-708) > 0.01 || wide.Width <= s.Width {
		t.Errorf("PageSize without sidebar = %+v, want height-limited and wider", wide)
	}
}

func TestGotoLastPage(t *testing.T) {
	b := tenPages()
	m := opened(t, b, 160, 50)

	m = press(m, runes("g"))
	if !m.GotoFocused() {
		t.Fatal("goto input not focused")
	}
	m = press(m, runes("1"))
	m = press(m, runes("0"))
	if m.GotoValue() != "10" {
		t.Fatalf("GotoValue = %q", m.GotoValue())
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	st := m.Nav()
	if st.Current != 9 || !st.Loading {
		t.Errorf("after goto: nav = %+v, want current 9 and loading", st)
	}
	if m.GotoValue() != "" || m.GotoFocused() {
		t.Error("goto input not cleared after a successful jump")
	}

	m = pump(t, m, cmd)
	if m.Nav().Loading {
		t.Error("loading still raised after page 9 decoded")
	}
	if got := residentSet(m.Window()); !equalInts(got, []int{5, 6, 7, 8, 9}) {
		t.Errorf("resident = %v, want pages 5..9", got)
	}
}

func TestGotoRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"0", "11", "x"} {
		t.Run(in, func(t *testing.T) {
			m := opened(t, tenPages(), 160, 50)
			m = press(m, runes("g"))
			m = press(m, runes(in))
			next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			m = next.(Model)
			if cmd != nil {
				t.Error("rejected input produced a command")
			}
			if m.Nav().Current != 0 || m.GotoValue() != in {
				t.Errorf("current = %d, value = %q", m.Nav().Current, m.GotoValue())
			}
		})
	}
}

func TestFlipNextUpdatesCurrent(t *testing.T) {
	m := opened(t, tenPages(), 80, 40)
	if !m.Mobile() || m.Flip().Dual() {
		t.Fatal("narrow terminal should be single page")
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.Nav().Current != 1 {
		t.Errorf("current = %d, want 1", m.Nav().Current)
	}
	if m.Nav().Flipping {
		t.Error("still flipping after the turn landed")
	}
	if !m.Window().Resident(5) {
		t.Error("page 5 should have entered the window")
	}
}

func TestControlsDisabledWhileFlipping(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	next, _ := m.Update(flip.ChangeStateMsg{ID: m.Flip().ID(), Seq: m.Flip().Seq(), State: flip.StateFlipping})
	m = next.(Model)
	if !m.Nav().Flipping {
		t.Fatal("flipping not recorded")
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	m = next.(Model)
	if cmd != nil || m.Nav().Current != 0 {
		t.Errorf("last page jump accepted mid-flip: current %d", m.Nav().Current)
	}
}

func TestOutlineNavigation(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		wantSidebar bool
	}{
		{"desktop keeps sidebar", 160, true},
		{"mobile closes sidebar", 80, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tenPages()
			m := opened(t, b, tt.width, 40)
			if tt.width < 100 {
				m = send(t, m, runes("t"))
				if !m.SidebarVisible() {
					t.Fatal("sidebar did not open")
				}
			}

			node := document.OutlineNode{Title: "Chapter 2", Dest: document.Named("chapter-2")}
			next, cmd := m.Update(outline.NavigateMsg{Node: node})
			m, seen := deliver(t, next.(Model), drain(cmd))

			if got := flipReports(seen); len(got) != 1 || got[0] != 4 {
				t.Errorf("turns = %v, want exactly one to page 4", got)
			}
			if m.Nav().Current != 4 {
				t.Errorf("current = %d, want 4", m.Nav().Current)
			}
			if b.Resolves() != 1 {
				t.Errorf("resolves = %d, want 1", b.Resolves())
			}
			if m.SidebarVisible() != tt.wantSidebar {
				t.Errorf("sidebar = %v, want %v", m.SidebarVisible(), tt.wantSidebar)
			}
		})
	}
}

func TestOutOfOrderFlipReportsAreDropped(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)

	// Two outline entries resolve back to back; their turn reports are
	// still in flight when the second one lands.
	var batches [][]tea.Msg
	for _, page := range []int{2, 9} {
		next, cmd := m.Update(app.DestinationResolvedEvent{Generation: m.Generation(), Page: page})
		m = next.(Model)
		batches = append(batches, drain(cmd))
	}
	m, _ = deliver(t, m, batches[1])
	m, _ = deliver(t, m, batches[0])

	if m.Flip().Current() != 9 || m.Nav().Current != 9 {
		t.Errorf("widget on %d, controller on %d; want 9", m.Flip().Current(), m.Nav().Current)
	}
	if m.Window().Current() != 9 || !m.Window().Resident(9) {
		t.Errorf("window centred on %d, resident(9) = %v", m.Window().Current(), m.Window().Resident(9))
	}
	if m.Nav().Loading {
		t.Error("loading stuck after the late report")
	}
}

func TestNextOnLastSpread(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	m = send(t, m, app.DestinationResolvedEvent{Generation: m.Generation(), Page: 8})
	if m.Nav().Current != 8 {
		t.Fatalf("current = %d, want 8", m.Nav().Current)
	}

	// Pages 8 and 9 already share the last spread, so next has nothing
	// further to show.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.Nav().Current != 8 || m.Flip().Animating() {
		t.Errorf("next on the last spread: current %d, animating %v", m.Nav().Current, m.Flip().Animating())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	if m.Nav().Current != 9 {
		t.Errorf("last: current = %d, want 9", m.Nav().Current)
	}
	if !strings.Contains(ansi.Strip(m.View()), "10 of 10") {
		t.Error("label should read 10 of 10 on the last page")
	}
}

func TestUnresolvedDestinationIsIgnored(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	node := document.OutlineNode{Title: "Gone", Dest: document.Named("nowhere")}
	m = send(t, m, outline.NavigateMsg{Node: node})
	if st := m.Nav(); st.Current != 0 || st.Loading {
		t.Errorf("nav = %+v after failed resolution", st)
	}

	// Header entries have no destination and resolve nothing.
	next, cmd := m.Update(outline.NavigateMsg{Node: document.OutlineNode{Title: "Part I"}})
	if cmd != nil || next.(Model).Nav().Current != 0 {
		t.Error("header entry navigated")
	}
}

func TestDecodeFailureLeavesPlaceholder(t *testing.T) {
	b := tenPages()
	b.FailPages = map[int]error{1: errors.New("bad xref")}
	m := opened(t, b, 160, 50)

	s := m.Window().Slot(1)
	if s.State != pagecache.Idle || s.Err == nil {
		t.Errorf("slot 1 = %+v, want idle with error", s)
	}
	if !strings.Contains(m.Status(), "page 2") {
		t.Errorf("status = %q", m.Status())
	}

	// Moving inside the window does not retry the failed page.
	before := len(b.Renders())
	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	for _, p := range b.Renders()[before:] {
		if p == 1 {
			t.Error("failed page was requested again while still in the window")
		}
	}
}

// busyHandle is a document whose Close fails.
type busyHandle struct{ document.Handle }

func (busyHandle) Close() error { return errors.New("file busy") }

func TestStaleOpenCloseFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	m := New(Options{
		Config:  testConfig(),
		Backend: tenPages(),
		Source:  "book.pdf",
		Caps:    testCaps(),
		Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
	})
	next, _ := m.Update(app.DocumentOpenedEvent{Generation: m.Generation() + 1, Source: "old.pdf", Handle: busyHandle{}})
	m = next.(Model)
	if m.Handle() != nil {
		t.Fatal("stale document was adopted")
	}
	if out := logs.String(); !strings.Contains(out, "closing stale document") || !strings.Contains(out, "file busy") {
		t.Errorf("close failure not logged:\n%s", out)
	}
}

func TestStaleEventsDropped(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	old := m.Handle().(*mock.Handle)
	gen := m.Generation()

	m = send(t, m, OpenMsg{Source: "other.pdf"})
	if m.Generation() != gen+1 {
		t.Fatalf("generation = %d, want %d", m.Generation(), gen+1)
	}
	if !old.Closed() {
		t.Error("previous document not closed")
	}

	applied := m.Window().Stats().Applied
	next, _ := m.Update(app.PageDecodedEvent{Generation: gen, Index: 0, Ticket: 1, Bitmap: nil})
	m = next.(Model)
	if m.Window().Stats().Applied != applied || m.Window().Stats().Discarded != 0 {
		t.Error("event from the previous document reached the window")
	}

	next, _ = m.Update(app.DestinationResolvedEvent{Generation: gen, Page: 7})
	if next.(Model).Nav().Current != 0 {
		t.Error("stale destination navigated")
	}
}

func TestOpenFailureIsPersistent(t *testing.T) {
	m := opened(t, &mock.Backend{FailOpen: errors.New("404 not found")}, 160, 50)
	var oe *document.OpenError
	if !errors.As(m.Err(), &oe) {
		t.Fatalf("Err = %v, want *OpenError", m.Err())
	}
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "Document unavailable") {
		t.Errorf("view does not report the failure:\n%s", view)
	}
	if st := m.Nav(); st.PageCount != 0 || st.Loading {
		t.Errorf("nav = %+v", st)
	}
}

func TestViewShowsPagesAndControls(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "1 of 10") {
		t.Error("control bar missing page label")
	}
	if !strings.Contains(view, "Contents") {
		t.Error("sidebar missing")
	}
	if !strings.ContainsAny(view, "▀▄") {
		t.Error("no halfblock page picture in view")
	}
	if lines := strings.Count(m.View(), "\n") + 1; lines != 50 {
		t.Errorf("view has %d lines, want 50", lines)
	}
}

func TestSkeletonUntilFlipInit(t *testing.T) {
	m := newViewer(tenPages(), false)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	m = next.(Model)
	h, _ := tenPages().Open(t.Context(), "book.pdf")
	next, _ = m.Update(app.DocumentOpenedEvent{Generation: m.Generation(), Source: "book.pdf", Handle: h, Aspect: 0.7})
	m = next.(Model)
	if m.Flip().Initialized() {
		t.Fatal("flip initialised before InitMsg")
	}
	if !strings.Contains(ansi.Strip(m.View()), "Loading") {
		t.Error("skeleton not shown before the flip widget is ready")
	}
}

func TestMobileBreakpoint(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	if m.Mobile() || !m.Flip().Dual() || !m.SidebarVisible() {
		t.Fatal("wide terminal should be dual with sidebar")
	}
	m = send(t, m, tea.WindowSizeMsg{Width: 90, Height: 50})
	if !m.Mobile() || m.Flip().Dual() || m.SidebarVisible() {
		t.Error("narrow terminal should be single page without sidebar")
	}
	m = send(t, m, tea.WindowSizeMsg{Width: 160, Height: 50})
	if m.Mobile() || !m.Flip().Dual() || !m.SidebarVisible() {
		t.Error("widening should restore dual pages and the sidebar")
	}
}

func TestOutlineFocus(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.OutlineFocused() || !m.Outline().Focused() {
		t.Fatal("tab did not focus the outline")
	}
	// Arrow keys move the outline cursor instead of turning pages.
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.Outline().Cursor() != 1 || m.Nav().Current != 0 {
		t.Errorf("cursor = %d, current = %d", m.Outline().Cursor(), m.Nav().Current)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.OutlineFocused() {
		t.Error("esc did not return focus to the pages")
	}
}

func TestHelpAndQuit(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	m = send(t, m, runes("?"))
	if !m.HelpVisible() {
		t.Error("help not shown")
	}
	next, cmd := m.Update(runes("q"))
	m = next.(Model)
	if !m.Quitting() || cmd == nil {
		t.Error("q did not quit")
	}
	if m.View() != "" {
		t.Error("view should be empty when quitting")
	}
}

func TestVerboseFooter(t *testing.T) {
	m := newViewer(tenPages(), true)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	m = next.(Model)
	// Init would also start the one second clock; open directly instead.
	m = send(t, m, OpenMsg{Source: "book.pdf"})

	for _, rss := range []uint64{96 << 20, 64 << 20} {
		next, _ = m.Update(memoryMsg{mem: sysinfo.Memory{RSS: rss, Total: 1 << 30}})
		m = next.(Model)
	}
	if m.MemoryHistory().Len() != 2 {
		t.Error("memory samples not recorded")
	}
	view := ansi.Strip(m.View())
	footer := view[strings.LastIndex(view, "\n")+1:]
	if !strings.Contains(footer, "resident 5/9") {
		t.Errorf("footer missing window counts:\n%s", footer)
	}
	if !strings.Contains(footer, "rss 64.0 MiB █▁ peak 96.0 MiB") {
		t.Errorf("footer missing RSS history:\n%s", footer)
	}
}

func TestCloseReleasesDocument(t *testing.T) {
	m := opened(t, tenPages(), 160, 50)
	h := m.Handle().(*mock.Handle)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !h.Closed() {
		t.Error("handle not closed")
	}
}
