package terminal

import (
	"os"
	"strings"
)

// GraphicsProtocol identifies how page bitmaps are written to the terminal.
type GraphicsProtocol int

const (
	ProtocolNone GraphicsProtocol = iota
	ProtocolKitty
	ProtocolITerm2
	ProtocolSixel
	ProtocolHalfblocks
)

var protocolNames = [...]string{
	ProtocolNone:       "none",
	ProtocolKitty:      "kitty",
	ProtocolITerm2:     "iterm2",
	ProtocolSixel:      "sixel",
	ProtocolHalfblocks: "halfblocks",
}

func (p GraphicsProtocol) String() string {
	if p >= 0 && int(p) < len(protocolNames) {
		return protocolNames[p]
	}
	return "unknown"
}

// Inline reports whether the protocol emits pixel data through escape
// sequences rather than coloured text cells.
func (p GraphicsProtocol) Inline() bool {
	return p == ProtocolKitty || p == ProtocolITerm2 || p == ProtocolSixel
}

// ParseProtocol maps a configuration value to a protocol. The second
// result is false for "auto", the empty string and unknown names.
func ParseProtocol(s string) (GraphicsProtocol, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kitty":
		return ProtocolKitty, true
	case "iterm2", "iterm":
		return ProtocolITerm2, true
	case "sixel":
		return ProtocolSixel, true
	case "halfblocks", "half-blocks", "unicode":
		return ProtocolHalfblocks, true
	case "none", "off":
		return ProtocolNone, true
	}
	return ProtocolNone, false
}

// SelectProtocol picks the protocol for term. An explicit override (see
// ParseProtocol) always wins. Inline protocols are unreliable through tmux
// and over SSH, so those sessions fall back to half blocks.
func SelectProtocol(term Terminal, override string) GraphicsProtocol {
	if p, ok := ParseProtocol(override); ok {
		return p
	}
	p := term.Graphics()
	if p.Inline() && (isSSH() || os.Getenv("TMUX") != "") {
		return ProtocolHalfblocks
	}
	return p
}

func isSSH() bool {
	return os.Getenv("SSH_TTY") != "" ||
		os.Getenv("SSH_CONNECTION") != "" ||
		os.Getenv("SSH_CLIENT") != ""
}
