// Package theme holds the viewer's colour palettes and the lipgloss styles
// derived from them.
package theme

import (
	"sort"
	"strings"
	"sync"
)

// Theme is a named palette of hex colours.
type Theme struct {
	Name string

	Foreground string
	Dim        string
	Accent     string

	// Border frames the sidebar; BorderFocus is used while it has focus.
	Border      string
	BorderFocus string
	Title       string

	OK    string
	Warn  string
	Error string

	HelpKey  string
	HelpDesc string
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	registerBuiltins()
}

// Get returns a named theme, falling back to default if not found.
func Get(name string) Theme {
	mu.RLock()
	defer mu.RUnlock()
	if t, ok := registry[strings.ToLower(name)]; ok {
		return t
	}
	return registry["default"]
}

// Has reports whether name is registered.
func Has(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[strings.ToLower(name)]
	return ok
}

// Names returns all available theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds t under its lowercase name, replacing any theme with the
// same name.
func Register(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
}
