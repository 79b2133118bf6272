package theme

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// tomlTheme is the on-disk form of a custom theme.
type tomlTheme struct {
	Name   string     `toml:"name"`
	Base   tomlBase   `toml:"base"`
	Border tomlBorder `toml:"border"`
	Status tomlStatus `toml:"status"`
	Help   tomlHelp   `toml:"help"`
}

type tomlBase struct {
	Foreground string `toml:"foreground"`
	Dim        string `toml:"dim"`
	Accent     string `toml:"accent"`
	Title      string `toml:"title"`
}

type tomlBorder struct {
	Normal string `toml:"normal"`
	Focus  string `toml:"focus"`
}

type tomlStatus struct {
	OK    string `toml:"ok"`
	Warn  string `toml:"warn"`
	Error string `toml:"error"`
}

type tomlHelp struct {
	Key  string `toml:"key"`
	Desc string `toml:"desc"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LoadFromTOML parses a theme definition. Colours left out are taken from
// the default theme.
func LoadFromTOML(data []byte) (Theme, error) {
	var tt tomlTheme
	if err := toml.Unmarshal(data, &tt); err != nil {
		return Theme{}, fmt.Errorf("theme: parse TOML: %w", err)
	}
	if tt.Name == "" {
		return Theme{}, errors.New("theme: missing name")
	}

	t := defaultTheme()
	t.Name = tt.Name
	fields := []struct {
		key string
		val string
		dst *string
	}{
		{"base.foreground", tt.Base.Foreground, &t.Foreground},
		{"base.dim", tt.Base.Dim, &t.Dim},
		{"base.accent", tt.Base.Accent, &t.Accent},
		{"base.title", tt.Base.Title, &t.Title},
		{"border.normal", tt.Border.Normal, &t.Border},
		{"border.focus", tt.Border.Focus, &t.BorderFocus},
		{"status.ok", tt.Status.OK, &t.OK},
		{"status.warn", tt.Status.Warn, &t.Warn},
		{"status.error", tt.Status.Error, &t.Error},
		{"help.key", tt.Help.Key, &t.HelpKey},
		{"help.desc", tt.Help.Desc, &t.HelpDesc},
	}
	for _, f := range fields {
		if f.val == "" {
			continue
		}
		if !hexColor.MatchString(f.val) {
			return Theme{}, fmt.Errorf("theme: invalid hex color %q for %s (expected #RRGGBB)", f.val, f.key)
		}
		*f.dst = f.val
	}
	return t, nil
}

// LoadFile reads a theme file and registers it.
func LoadFile(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("theme: %w", err)
	}
	t, err := LoadFromTOML(data)
	if err != nil {
		return Theme{}, err
	}
	Register(t)
	return t, nil
}
