// Package terminal works out what the hosting terminal can draw. It picks
// the image protocol for page bitmaps and reports the pixel size of one
// character cell so page geometry computed in pixels can be mapped onto
// the cell grid.
//
// Detection only inspects the environment and the tty ioctl. It never
// writes query sequences, so it is safe before the program takes over
// the screen.
package terminal

import (
	"os"
	"strings"
)

// Terminal identifies the terminal emulator in use.
type Terminal int

const (
	TermUnknown Terminal = iota
	TermGhostty
	TermKitty
	TermWezTerm
	TermITerm2
	TermKonsole
	TermVSCode
	TermAlacritty
	TermTmux
	TermGeneric
)

var terminalNames = [...]string{
	TermUnknown:   "unknown",
	TermGhostty:   "ghostty",
	TermKitty:     "kitty",
	TermWezTerm:   "wezterm",
	TermITerm2:    "iterm2",
	TermKonsole:   "konsole",
	TermVSCode:    "vscode",
	TermAlacritty: "alacritty",
	TermTmux:      "tmux",
	TermGeneric:   "generic",
}

func (t Terminal) String() string {
	if t >= 0 && int(t) < len(terminalNames) {
		return terminalNames[t]
	}
	return "unknown"
}

// Graphics returns the richest image protocol the emulator is known to
// support, before any session degradation.
func (t Terminal) Graphics() GraphicsProtocol {
	switch t {
	case TermGhostty, TermKitty:
		return ProtocolKitty
	case TermWezTerm, TermITerm2, TermVSCode:
		return ProtocolITerm2
	case TermKonsole:
		return ProtocolSixel
	default:
		return ProtocolHalfblocks
	}
}

// Detect identifies the terminal emulator from environment variables.
// TERM_PROGRAM wins, then TERM, then emulator specific variables. A tmux
// session is only reported when nothing identifies the outer terminal.
func Detect() Terminal {
	switch strings.ToLower(os.Getenv("TERM_PROGRAM")) {
	case "ghostty":
		return TermGhostty
	case "kitty":
		return TermKitty
	case "wezterm":
		return TermWezTerm
	case "iterm.app":
		return TermITerm2
	case "vscode":
		return TermVSCode
	case "alacritty":
		return TermAlacritty
	case "tmux":
		return TermTmux
	}

	term := os.Getenv("TERM")
	switch {
	case term == "xterm-ghostty":
		return TermGhostty
	case term == "xterm-kitty":
		return TermKitty
	case term == "wezterm":
		return TermWezTerm
	case strings.HasPrefix(term, "alacritty"):
		return TermAlacritty
	}

	switch {
	case os.Getenv("KITTY_WINDOW_ID") != "":
		return TermKitty
	case os.Getenv("WEZTERM_EXECUTABLE") != "":
		return TermWezTerm
	case os.Getenv("ITERM_SESSION_ID") != "", os.Getenv("LC_TERMINAL") == "iTerm2":
		return TermITerm2
	case os.Getenv("KONSOLE_VERSION") != "":
		return TermKonsole
	case os.Getenv("TMUX") != "":
		return TermTmux
	}
	return TermGeneric
}
