// Package flip is the page-turning widget. It shows one page, or a spread
// of two, and animates turns over a fixed number of frames. The host
// learns about the widget through three messages: InitMsg once, FlipMsg
// whenever the visible page changes, and ChangeStateMsg on every state
// transition.
package flip

import (
	"image"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// State is the widget's animation state.
type State int

const (
	StateRead State = iota
	StateFoldCorner
	StateFlipping
)

func (s State) String() string {
	switch s {
	case StateFoldCorner:
		return "fold_corner"
	case StateFlipping:
		return "flipping"
	default:
		return "read"
	}
}

// Flipping reports whether a turn is under way. Lifting the corner does
// not count; the page only flips once it leaves the corner.
func (s State) Flipping() bool { return s == StateFlipping }

// Pages supplies page bitmaps. Bitmap returns nil for a page that is not
// decoded yet; the widget draws a blank page in its place.
type Pages interface {
	Len() int
	Bitmap(i int) image.Image
}

// InitMsg is sent once after Init.
type InitMsg struct {
	ID    int
	Pages int
}

// FlipMsg reports the page now shown. In dual mode it is the left page of
// the spread, except after TurnToPage, which reports the requested page.
// Seq is the turn that produced it; only a message whose Seq equals the
// widget's Seq describes what is on screen.
type FlipMsg struct {
	ID   int
	Seq  int
	Page int
}

// ChangeStateMsg reports a state transition. Seq works as in FlipMsg.
type ChangeStateMsg struct {
	ID    int
	Seq   int
	State State
}

type frameMsg struct {
	id  int
	seq int
}

// Options tune the widget.
type Options struct {
	// Duration of a full turn. Default 500ms.
	Duration time.Duration
	// Frames per turn. Default 8.
	Frames int
	// Dual shows two pages side by side.
	Dual bool
}

// Model is the widget state. It is a value type; methods that change it
// return the updated copy, as Bubble Tea components do.
type Model struct {
	id    int
	pages Pages
	opts  Options

	current     int
	state       State
	initialized bool

	// animation
	seq    int
	frame  int
	from   int
	target int
}

// New returns a widget over pages, showing page 0.
func New(pages Pages, opts Options) Model {
	if opts.Duration <= 0 {
		opts.Duration = 500 * time.Millisecond
	}
	if opts.Frames < 1 {
		opts.Frames = 8
	}
	return Model{id: nextID(), pages: pages, opts: opts}
}

func (m Model) ID() int           { return m.id }
func (m Model) Current() int      { return m.current }
func (m Model) State() State      { return m.state }
func (m Model) Dual() bool        { return m.opts.Dual }
func (m Model) Initialized() bool { return m.initialized }
func (m Model) Animating() bool   { return m.state != StateRead }
func (m Model) Options() Options  { return m.opts }

// Seq changes on every TurnToPage and whenever a turn starts or lands.
// Together with Progress it identifies the picture Frame would draw for
// the same pages.
func (m Model) Seq() int { return m.seq }

// Latest reports whether a FlipMsg or ChangeStateMsg stamped with id and
// seq still describes this widget. Messages from an abandoned or
// superseded turn are not.
func (m Model) Latest(id, seq int) bool { return id == m.id && seq == m.seq }

func (m Model) pageCount() int {
	if m.pages == nil {
		return 0
	}
	return m.pages.Len()
}

// Progress returns how far the running turn has got, in [0, 1]. It is 0
// when idle.
func (m Model) Progress() float64 {
	if m.state == StateRead {
		return 0
	}
	return float64(m.frame) / float64(m.opts.Frames)
}

// SetDual switches between single and dual presentation. A running turn
// is finished immediately.
func (m Model) SetDual(dual bool) (Model, tea.Cmd) {
	if m.opts.Dual == dual {
		return m, nil
	}
	var cmd tea.Cmd
	if m.state != StateRead {
		m, cmd = m.finish()
	}
	m.opts.Dual = dual
	return m, cmd
}

// Init announces the widget.
func (m Model) Init() tea.Cmd {
	id, n := m.id, m.pageCount()
	return func() tea.Msg { return InitMsg{ID: id, Pages: n} }
}

// TurnToPage shows page i without animation. Out of range pages are
// ignored. A running turn is abandoned.
func (m Model) TurnToPage(i int) (Model, tea.Cmd) {
	if i < 0 || i >= m.pageCount() {
		return m, nil
	}
	var cmds []tea.Cmd
	m.seq++
	if m.state != StateRead {
		m.state = StateRead
		cmds = append(cmds, m.stateCmd())
	}
	m.current = i
	cmds = append(cmds, m.flipCmd(i))
	return m, tea.Batch(cmds...)
}

// FlipNext starts a forward turn. It does nothing while a turn is running
// or when there is nothing further to show.
func (m Model) FlipNext() (Model, tea.Cmd) {
	return m.start(m.step(+1))
}

// FlipPrev starts a backward turn.
func (m Model) FlipPrev() (Model, tea.Cmd) {
	return m.start(m.step(-1))
}

// step returns the page a turn in direction dir lands on, or -1.
func (m Model) step(dir int) int {
	n := m.pageCount()
	if n == 0 {
		return -1
	}
	from := m.current
	stride := 1
	if m.opts.Dual {
		from = spreadStart(m.current)
		stride = 2
	}
	t := from + dir*stride
	if t < 0 || t >= n {
		return -1
	}
	return t
}

func spreadStart(i int) int { return i - i%2 }

func (m Model) start(target int) (Model, tea.Cmd) {
	if target < 0 || m.state != StateRead {
		return m, nil
	}
	m.seq++
	m.from = m.current
	if m.opts.Dual {
		m.from = spreadStart(m.current)
	}
	m.target = target
	m.frame = 0
	m.state = StateFoldCorner
	return m, tea.Batch(m.stateCmd(), m.tick())
}

// Update advances the animation and records InitMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case InitMsg:
		if msg.ID == m.id {
			m.initialized = true
		}
	case frameMsg:
		if msg.id != m.id || msg.seq != m.seq || m.state == StateRead {
			return m, nil
		}
		m.frame++
		if m.frame >= m.opts.Frames {
			return m.finish()
		}
		if m.state == StateFoldCorner {
			m.state = StateFlipping
			return m, tea.Batch(m.stateCmd(), m.tick())
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) finish() (Model, tea.Cmd) {
	m.seq++
	m.current = m.target
	m.frame = 0
	m.state = StateRead
	return m, tea.Batch(m.flipCmd(m.current), m.stateCmd())
}

func (m Model) tick() tea.Cmd {
	id, seq := m.id, m.seq
	return tea.Tick(m.opts.Duration/time.Duration(m.opts.Frames), func(time.Time) tea.Msg {
		return frameMsg{id: id, seq: seq}
	})
}

func (m Model) stateCmd() tea.Cmd {
	id, seq, st := m.id, m.seq, m.state
	return func() tea.Msg { return ChangeStateMsg{ID: id, Seq: seq, State: st} }
}

func (m Model) flipCmd(page int) tea.Cmd {
	id, seq := m.id, m.seq
	return func() tea.Msg { return FlipMsg{ID: id, Seq: seq, Page: page} }
}

// Visible returns the pages shown when idle: one page, or the spread
// containing the current page. The second index is -1 when absent.
func (m Model) Visible() (left, right int) {
	if !m.opts.Dual {
		return m.current, -1
	}
	left = spreadStart(m.current)
	right = left + 1
	if right >= m.pageCount() {
		right = -1
	}
	return left, right
}
