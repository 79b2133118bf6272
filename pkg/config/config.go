// Package config loads flipbook settings from TOML or YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/tinyland/lab/flipbook/pkg/terminal"
	"gitlab.com/tinyland/lab/flipbook/pkg/theme"
)

// Config is the full settings tree.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Viewer  ViewerConfig  `toml:"viewer" yaml:"viewer"`
	Image   ImageConfig   `toml:"image" yaml:"image"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
}

type GeneralConfig struct {
	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogFile  string `toml:"log_file" yaml:"log_file"`
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`
}

// ViewerConfig holds page layout and animation settings. Padding values
// are in pixels; widths and breakpoints are in terminal columns.
type ViewerConfig struct {
	Threshold        int      `toml:"threshold" yaml:"threshold"`
	RenderScale      float64  `toml:"render_scale" yaml:"render_scale"`
	XPadding         int      `toml:"x_padding" yaml:"x_padding"`
	YPadding         int      `toml:"y_padding" yaml:"y_padding"`
	MobileBreakpoint int      `toml:"mobile_breakpoint" yaml:"mobile_breakpoint"`
	SidebarWidth     int      `toml:"sidebar_width" yaml:"sidebar_width"`
	FlipDuration     Duration `toml:"flip_duration" yaml:"flip_duration"`
	FlipFrames       int      `toml:"flip_frames" yaml:"flip_frames"`
	ShowSidebar      bool     `toml:"show_sidebar" yaml:"show_sidebar"`
	// Theme is a built-in theme name or a path to a .toml theme file.
	Theme string `toml:"theme" yaml:"theme"`
}

type ImageConfig struct {
	// Protocol is auto, kitty, iterm2, sixel, halfblocks or none.
	Protocol   string `toml:"protocol" yaml:"protocol"`
	MaxCacheMB int    `toml:"max_cache_mb" yaml:"max_cache_mb"`
}

// CacheConfig controls the on-disk cache of decoded pages.
type CacheConfig struct {
	Enabled   bool     `toml:"enabled" yaml:"enabled"`
	MaxSizeMB int      `toml:"max_size_mb" yaml:"max_size_mb"`
	TTL       Duration `toml:"ttl" yaml:"ttl"`
}

// Level maps LogLevel to a slog level. Unknown names map to info.
func (g GeneralConfig) Level() slog.Level {
	switch strings.ToLower(g.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports every setting that cannot be used, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.General.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("general.log_level: unknown level %q", c.General.LogLevel))
	}
	if c.Viewer.Threshold < 0 {
		errs = append(errs, fmt.Errorf("viewer.threshold: must be >= 0, got %d", c.Viewer.Threshold))
	}
	if c.Viewer.RenderScale <= 0 {
		errs = append(errs, fmt.Errorf("viewer.render_scale: must be > 0, got %g", c.Viewer.RenderScale))
	}
	if c.Viewer.FlipFrames < 1 {
		errs = append(errs, fmt.Errorf("viewer.flip_frames: must be >= 1, got %d", c.Viewer.FlipFrames))
	}
	if c.Viewer.XPadding < 0 || c.Viewer.YPadding < 0 {
		errs = append(errs, errors.New("viewer padding must not be negative"))
	}
	if c.Viewer.SidebarWidth < 0 {
		errs = append(errs, fmt.Errorf("viewer.sidebar_width: must be >= 0, got %d", c.Viewer.SidebarWidth))
	}
	if th := c.Viewer.Theme; th != "" && !strings.HasSuffix(th, ".toml") && !theme.Has(th) {
		errs = append(errs, fmt.Errorf("viewer.theme: unknown theme %q", th))
	}
	if p := c.Image.Protocol; p != "" && p != "auto" {
		if _, ok := terminal.ParseProtocol(p); !ok {
			errs = append(errs, fmt.Errorf("image.protocol: unknown protocol %q", p))
		}
	}
	if c.Cache.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("cache.max_size_mb: must be >= 0, got %d", c.Cache.MaxSizeMB))
	}
	return errors.Join(errs...)
}
