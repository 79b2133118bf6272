package terminal

import (
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
	"golang.org/x/sys/unix"
)

// Fallback cell size in pixels when the tty does not report one.
const (
	DefaultCellWidth  = 8
	DefaultCellHeight = 16
)

// Size is the terminal grid plus the pixel size of one cell.
type Size struct {
	Cols  int
	Rows  int
	CellW int
	CellH int
}

// GetSize returns the current terminal size. TIOCGWINSZ is tried on
// stdout and stderr since it carries pixel dimensions. Without it the
// grid comes from x/term, then COLUMNS/LINES, then 80x24, and the cell
// size falls back to the defaults.
func GetSize() Size {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		if s, ok := ioctlSize(f.Fd()); ok {
			return s
		}
	}
	s := Size{CellW: DefaultCellWidth, CellH: DefaultCellHeight}
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && h > 0 {
		s.Cols, s.Rows = w, h
		return s
	}
	s.Cols = envInt("COLUMNS", 80)
	s.Rows = envInt("LINES", 24)
	return s
}

func ioctlSize(fd uintptr) (Size, bool) {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 || ws.Row == 0 {
		return Size{}, false
	}
	s := Size{Cols: int(ws.Col), Rows: int(ws.Row)}
	s.CellW = DefaultCellWidth
	s.CellH = DefaultCellHeight
	if ws.Xpixel > 0 && ws.Ypixel > 0 {
		if w := int(ws.Xpixel) / s.Cols; w > 0 {
			s.CellW = w
		}
		if h := int(ws.Ypixel) / s.Rows; h > 0 {
			s.CellH = h
		}
	}
	return s, true
}

func envInt(name string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
