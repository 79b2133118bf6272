// Package viewer is the flipbook's root Bubble Tea model. It owns the open
// document and composes the page window cache, the navigation controller,
// the flip widget and the outline sidebar, feeding each asynchronous
// result back to the component that asked for it.
package viewer

import (
	"context"
	"image"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/flipbook/pkg/app"
	"gitlab.com/tinyland/lab/flipbook/pkg/config"
	"gitlab.com/tinyland/lab/flipbook/pkg/destination"
	"gitlab.com/tinyland/lab/flipbook/pkg/document"
	"gitlab.com/tinyland/lab/flipbook/pkg/flip"
	"gitlab.com/tinyland/lab/flipbook/pkg/geometry"
	fbimage "gitlab.com/tinyland/lab/flipbook/pkg/image"
	"gitlab.com/tinyland/lab/flipbook/pkg/nav"
	"gitlab.com/tinyland/lab/flipbook/pkg/outline"
	"gitlab.com/tinyland/lab/flipbook/pkg/pagecache"
	"gitlab.com/tinyland/lab/flipbook/pkg/sysinfo"
	"gitlab.com/tinyland/lab/flipbook/pkg/terminal"
	"gitlab.com/tinyland/lab/flipbook/pkg/theme"
)

// defaultAspect is used when the first page's size is unknown (A4 portrait).
const defaultAspect = 1 / math.Sqrt2

const (
	tickInterval = time.Second
	historySize  = 60
)

// OpenMsg replaces the open document with Source.
type OpenMsg struct {
	Source string
}

// memoryMsg carries one memory sample for the debug footer.
type memoryMsg struct {
	mem sysinfo.Memory
	err error
}

type focusArea int

const (
	focusPages focusArea = iota
	focusOutline
	focusGoto
)

// Options configure a Model.
type Options struct {
	Config  *config.Config
	Backend document.Backend
	Source  string

	// Caps describes the terminal. Renderer is built from it when nil.
	Caps     terminal.Capabilities
	Renderer *fbimage.Renderer

	Logger  *slog.Logger
	Verbose bool
}

// Model is the root model. Its pointer fields are owned by the event loop;
// a Model must not be shared between programs.
type Model struct {
	cfg     config.ViewerConfig
	backend document.Backend
	source  string
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	verbose bool

	gen     uint64
	handle  document.Handle
	openErr error
	aspect  float64

	window   *pagecache.Window
	nav      *nav.Controller
	flip     flip.Model
	outline  outline.Model
	resolver *destination.Resolver

	gotoInput textinput.Model
	spinner   spinner.Model
	spinning  bool
	help      help.Model
	keys      KeyMap
	zones     *zone.Manager
	prefix    string
	renderer  *fbimage.Renderer
	styles    theme.Styles

	memory   sysinfo.Memory
	rss      *sysinfo.History
	decodeMS *sysinfo.History

	width, height int
	ready         bool
	quitting      bool
	showHelp      bool
	sidebar       bool
	mobile        bool
	focus         focusArea

	// layout, recomputed by relayout
	areaCols, areaRows int
	pageCols, pageRows int
	size               geometry.Size

	// version changes whenever a page bitmap arrives or is dropped, so
	// cached frames that showed the old bitmap are not reused.
	version uint64
	status  string
}

// New builds the viewer. Nothing is opened until Init runs.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With("component", "viewer")

	renderer := opts.Renderer
	if renderer == nil {
		renderer = fbimage.NewRenderer(opts.Caps, 0, log)
	}

	th := theme.Get(cfg.Viewer.Theme)
	if strings.HasSuffix(cfg.Viewer.Theme, ".toml") {
		if t, err := theme.LoadFile(cfg.Viewer.Theme); err == nil {
			th = t
		} else {
			log.Warn("theme not loaded", "path", cfg.Viewer.Theme, "error", err)
		}
	}
	styles := th.Styles()

	z := zone.New()

	ti := textinput.New()
	ti.Placeholder = "page"
	ti.Prompt = ""
	ti.CharLimit = 6
	ti.Width = 6

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(th.Accent))

	h := help.New()
	h.Styles = styles.Help

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		cfg:       cfg.Viewer,
		backend:   opts.Backend,
		source:    opts.Source,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		verbose:   opts.Verbose,
		gotoInput: ti,
		spinner:   sp,
		help:      h,
		keys:      DefaultKeyMap(),
		zones:     z,
		prefix:    z.NewPrefix(),
		renderer:  renderer,
		styles:    styles,
		rss:       sysinfo.NewHistory(historySize),
		decodeMS:  sysinfo.NewHistory(historySize),
		sidebar:   cfg.Viewer.ShowSidebar,
		outline:   outline.New(z),
	}
	m.resetDocument()
	m.gen = 1
	m.spinning = true
	return m
}

// resetDocument drops everything derived from the open document.
func (m *Model) resetDocument() {
	m.handle = nil
	m.openErr = nil
	m.aspect = 0
	m.window = pagecache.New(0, m.cfg.Threshold, m.log)
	m.nav = nav.New(0, m.window.Resident)
	m.flip = flip.New(slots{m.window}, m.flipOptions())
	m.outline = m.outline.Reset()
	m.resolver = nil
	m.gotoInput.SetValue("")
	m.status = ""
	m.version++
	m.renderer.Cache().Invalidate()
}

func (m *Model) flipOptions() flip.Options {
	return flip.Options{
		Duration: m.cfg.FlipDuration.Duration,
		Frames:   m.cfg.FlipFrames,
		Dual:     !m.mobile,
	}
}

// slots exposes the window's bitmaps to the flip widget.
type slots struct {
	w *pagecache.Window
}

func (s slots) Len() int { return s.w.Len() }

func (s slots) Bitmap(i int) image.Image { return s.w.Bitmap(i) }

// Init opens the document.
func (m Model) Init() tea.Cmd {
	m.log.Info("opening document", "source", m.source, "generation", m.gen)
	cmds := []tea.Cmd{app.OpenDocumentCmd(m.ctx, m.backend, m.source, m.gen), m.spinner.Tick}
	if m.verbose {
		cmds = append(cmds, app.TickCmd(tickInterval), m.sampleMemory())
	}
	return tea.Batch(cmds...)
}

// reopen closes the current document and opens source under a new
// generation. Results still in flight for the old one are dropped on
// arrival.
func (m *Model) reopen(source string) tea.Cmd {
	if m.handle != nil {
		if err := m.handle.Close(); err != nil {
			m.log.Warn("closing document", "source", m.source, "error", err)
		}
	}
	m.resetDocument()
	m.relayout()
	m.source = source
	m.gen++
	m.log.Info("opening document", "source", source, "generation", m.gen)
	return tea.Batch(app.OpenDocumentCmd(m.ctx, m.backend, source, m.gen), m.spin())
}

// Close cancels outstanding work and releases the document.
func (m Model) Close() error {
	m.cancel()
	if m.handle == nil {
		return nil
	}
	m.log.Info("closing document", "source", m.source)
	return m.handle.Close()
}

// Accessors.
func (m Model) Width() int                      { return m.width }
func (m Model) Height() int                     { return m.height }
func (m Model) Quitting() bool                  { return m.quitting }
func (m Model) HelpVisible() bool               { return m.showHelp }
func (m Model) Ready() bool                     { return m.ready }
func (m Model) Generation() uint64              { return m.gen }
func (m Model) Handle() document.Handle         { return m.handle }
func (m Model) Err() error                      { return m.openErr }
func (m Model) Nav() nav.State                  { return m.nav.State() }
func (m Model) Window() *pagecache.Window       { return m.window }
func (m Model) Flip() flip.Model                { return m.flip }
func (m Model) Outline() outline.Model          { return m.outline }
func (m Model) SidebarVisible() bool            { return m.sidebar }
func (m Model) Mobile() bool                    { return m.mobile }
func (m Model) PageSize() geometry.Size         { return m.size }
func (m Model) GotoValue() string               { return m.gotoInput.Value() }
func (m Model) GotoFocused() bool               { return m.focus == focusGoto }
func (m Model) OutlineFocused() bool            { return m.focus == focusOutline }
func (m Model) Status() string                  { return m.status }
func (m Model) PageCells() (cols, rows int)     { return m.pageCols, m.pageRows }
func (m Model) Renderer() *fbimage.Renderer     { return m.renderer }
func (m Model) MemoryHistory() *sysinfo.History { return m.rss }
