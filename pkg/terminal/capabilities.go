package terminal

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
)

// Capabilities summarises what the session can draw.
type Capabilities struct {
	Term      Terminal
	Protocol  GraphicsProtocol
	Size      Size
	TrueColor bool
	SSH       bool
}

var (
	capsOnce sync.Once
	caps     Capabilities
)

// DetectCapabilities runs detection once per process and returns the
// result. The override is only consulted on the first call. FLIPBOOK_PROTOCOL
// takes precedence over it.
func DetectCapabilities(override string) Capabilities {
	capsOnce.Do(func() {
		caps = detect(override)
	})
	return caps
}

func detect(override string) Capabilities {
	if env := os.Getenv("FLIPBOOK_PROTOCOL"); env != "" {
		override = env
	}
	t := Detect()
	c := Capabilities{
		Term:      t,
		Protocol:  SelectProtocol(t, override),
		Size:      GetSize(),
		TrueColor: termenv.EnvColorProfile() == termenv.TrueColor,
		SSH:       isSSH(),
	}
	// Emulators with an inline protocol all do 24-bit colour even when
	// COLORTERM is not exported.
	if t.Graphics().Inline() {
		c.TrueColor = true
	}
	return c
}
