// flipbook shows a PDF in the terminal as a flipbook.
//
// Pages are decoded in the background as they come near the current page
// and drawn with the best graphics protocol the terminal supports.
//
// Usage:
//
//	flipbook [flags] <file.pdf | https://...>
//
// Flags:
//
//	-config string    Path to configuration file (default: ~/.config/flipbook/config.toml)
//	-protocol string  Graphics protocol override (kitty|iterm2|sixel|halfblocks|none)
//	-theme string     Theme name or .toml theme file
//	-info             Print page count and outline, then exit
//	-use-mocks        Open a synthetic document instead of a PDF (for testing)
//	-mock-pages int   Number of pages in the synthetic document (default: 24)
//	-verbose          Enable debug logging and the debug footer
//	-version          Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"gitlab.com/tinyland/lab/flipbook/pkg/cache"
	"gitlab.com/tinyland/lab/flipbook/pkg/config"
	"gitlab.com/tinyland/lab/flipbook/pkg/document"
	"gitlab.com/tinyland/lab/flipbook/pkg/document/mock"
	"gitlab.com/tinyland/lab/flipbook/pkg/image"
	"gitlab.com/tinyland/lab/flipbook/pkg/pdf"
	"gitlab.com/tinyland/lab/flipbook/pkg/terminal"
	"gitlab.com/tinyland/lab/flipbook/pkg/viewer"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		protocol    = flag.String("protocol", "", "Graphics protocol override (kitty|iterm2|sixel|halfblocks|none)")
		themeName   = flag.String("theme", "", "Theme name or .toml theme file")
		showInfo    = flag.Bool("info", false, "Print page count and outline, then exit")
		useMocks    = flag.Bool("use-mocks", false, "Open a synthetic document instead of a PDF (for testing)")
		mockPages   = flag.Int("mock-pages", 24, "Number of pages in the synthetic document (with -use-mocks)")
		verbose     = flag.Bool("verbose", false, "Enable debug logging and the debug footer")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: flipbook [flags] <file.pdf | url>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("flipbook %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	source := flag.Arg(0)
	if source == "" && !*useMocks {
		flag.Usage()
		os.Exit(2)
	}
	if *useMocks && source == "" {
		source = "mock.pdf"
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *protocol != "" {
		cfg.Image.Protocol = *protocol
	}
	if *themeName != "" {
		cfg.Viewer.Theme = *themeName
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logLevel := cfg.General.Level()
	if *verbose {
		logLevel = slog.LevelDebug
	}

	// The TUI owns the terminal, so only -info may log to stderr.
	var logOut io.Writer = os.Stderr
	if !*showInfo {
		if err := ensureLogDir(cfg.General.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
			os.Exit(1)
		}
		logFile, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		logOut = logFile
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))

	backend, closeBackend := newBackend(cfg, logger, *useMocks, *mockPages)
	defer closeBackend()

	if *showInfo {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			logger.Info("received shutdown signal")
			cancel()
		}()

		if err := printInfo(ctx, os.Stdout, backend, source); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "flipbook needs a terminal; use -info for plain output")
		os.Exit(1)
	}

	caps := terminal.DetectCapabilities(cfg.Image.Protocol)
	logger.Info("terminal detected",
		"term", caps.Term,
		"protocol", caps.Protocol,
		"cell", fmt.Sprintf("%dx%d", caps.Size.CellW, caps.Size.CellH),
		"truecolor", caps.TrueColor,
		"ssh", caps.SSH,
	)

	model := viewer.New(viewer.Options{
		Config:   cfg,
		Backend:  backend,
		Source:   source,
		Caps:     caps,
		Renderer: image.NewRenderer(caps, cfg.Image.MaxCacheMB, logger),
		Logger:   logger,
		Verbose:  *verbose,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if m, ok := final.(viewer.Model); ok {
		if cerr := m.Close(); cerr != nil {
			logger.Warn("closing document", "error", cerr)
		}
	}
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "flipbook: %v\n", err)
		os.Exit(1)
	}
}

// newBackend returns the document backend, wrapped in the disk cache when
// it is enabled. The returned func releases the cache.
func newBackend(cfg *config.Config, logger *slog.Logger, useMocks bool, mockPages int) (document.Backend, func()) {
	var b document.Backend
	if useMocks {
		logger.Info("using mock document", "pages", mockPages)
		b = &mock.Backend{Pages: mockPages}
	} else {
		b = &pdf.Backend{Logger: logger}
	}

	if !cfg.Cache.Enabled || useMocks {
		return b, func() {}
	}
	store, err := cache.NewStore(cache.StoreConfig{
		Dir:       filepath.Join(cfg.General.CacheDir, "pages"),
		MaxSizeMB: cfg.Cache.MaxSizeMB,
		TTL:       cfg.Cache.TTL.Duration,
	})
	if err != nil {
		logger.Warn("page cache disabled", "error", err)
		return b, func() {}
	}
	return document.Cached{Backend: b, Store: store, Logger: logger}, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing page cache", "error", err)
		}
	}
}

// printInfo writes the page count and the outline, indented by depth.
func printInfo(ctx context.Context, w io.Writer, b document.Backend, source string) error {
	h, err := b.Open(ctx, source)
	if err != nil {
		return err
	}
	defer h.Close()

	fmt.Fprintf(w, "%s: %d pages\n", source, h.PageCount())
	if h.PageCount() > 0 {
		if pw, ph, err := h.PageSize(ctx, 0); err == nil {
			fmt.Fprintf(w, "page size: %.0fx%.0f pt\n", pw, ph)
		}
	}
	nodes := h.Outline()
	if len(nodes) == 0 {
		return nil
	}
	fmt.Fprintln(w, "outline:")
	document.Walk(nodes, func(n *document.OutlineNode, depth int) bool {
		target := ""
		switch d := n.Dest.(type) {
		case document.Named:
			target = " -> " + string(d)
		case document.Location:
			if idx, err := h.LocationToPageIndex(ctx, d); err == nil {
				target = fmt.Sprintf(" -> p%d", idx+1)
			}
		}
		fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth+1), n.Title, target)
		return true
	})
	return nil
}

func ensureLogDir(logFile string) error {
	dir := filepath.Dir(logFile)
	return os.MkdirAll(dir, 0o755)
}
