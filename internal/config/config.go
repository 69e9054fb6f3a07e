package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/1broseidon/xcomp/internal/compositor"
	"github.com/1broseidon/xcomp/internal/platform"
)

const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "auto"
	DefaultFallbackColor   = "#808080"
	DefaultOpacityProperty = "_NET_WM_WINDOW_OPACITY"
)

type Background struct {
	// Properties are the root window properties searched, in order, for a
	// wallpaper pixmap.
	Properties    []string `yaml:"properties"`
	FallbackColor string   `yaml:"fallback_color"`
}

type Opacity struct {
	Enabled  bool   `yaml:"enabled"`
	Property string `yaml:"property"`
}

type Restack struct {
	// DropOnMissingTarget forgets a window restacked above an untracked
	// sibling instead of moving it to the top.
	DropOnMissingTarget bool `yaml:"drop_on_missing_target"`
}

type Config struct {
	Display    string     `yaml:"display,omitempty"`
	LogLevel   string     `yaml:"log_level"`
	LogFormat  string     `yaml:"log_format"`
	Background Background `yaml:"background"`
	Opacity    Opacity    `yaml:"opacity"`
	Restack    Restack    `yaml:"restack"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Background: Background{
			Properties:    append([]string(nil), compositor.DefaultBackgroundProperties...),
			FallbackColor: DefaultFallbackColor,
		},
		Opacity: Opacity{
			Enabled:  true,
			Property: DefaultOpacityProperty,
		},
	}
}

// ResolveDisplay returns the configured display, falling back to $DISPLAY.
func (c *Config) ResolveDisplay() string {
	if strings.TrimSpace(c.Display) != "" {
		return c.Display
	}
	return os.Getenv("DISPLAY")
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OpacityProperty returns the property to track, or "" when opacity is
// disabled.
func (c *Config) OpacityProperty() string {
	if !c.Opacity.Enabled {
		return ""
	}
	return c.Opacity.Property
}

// ToOptions converts the configuration into compositor options.
func (c *Config) ToOptions(logger *slog.Logger) (compositor.Options, error) {
	fill, err := ParseColor(c.Background.FallbackColor)
	if err != nil {
		return compositor.Options{}, &ValidationError{Path: "background.fallback_color", Err: err}
	}
	return compositor.Options{
		BackgroundProperties: append([]string(nil), c.Background.Properties...),
		FallbackColor:        &fill,
		OpacityProperty:      c.OpacityProperty(),
		DropOnMissingTarget:  c.Restack.DropOnMissingTarget,
		Logger:               logger,
	}, nil
}

// ParseColor parses an opaque "#rrggbb" color.
func ParseColor(s string) (platform.Color, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return platform.Color{}, fmt.Errorf("color %q must have the form #rrggbb", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return platform.Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return platform.Color{
		Red:   uint16(v>>16&0xff) * 0x101,
		Green: uint16(v>>8&0xff) * 0x101,
		Blue:  uint16(v&0xff) * 0x101,
		Alpha: 0xffff,
	}, nil
}

// Validate checks the effective configuration and reports every violation.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		result = multierror.Append(result, &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")})
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		result = multierror.Append(result, &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: auto, text, json")})
	}

	if len(c.Background.Properties) == 0 {
		result = multierror.Append(result, &ValidationError{Path: "background.properties", Err: fmt.Errorf("background.properties must not be empty")})
	}
	for i, name := range c.Background.Properties {
		if strings.TrimSpace(name) == "" {
			result = multierror.Append(result, &ValidationError{
				Path: "background.properties",
				Err:  fmt.Errorf("entry %d is empty", i),
			})
		}
	}
	if _, err := ParseColor(c.Background.FallbackColor); err != nil {
		result = multierror.Append(result, &ValidationError{Path: "background.fallback_color", Err: err})
	}

	if c.Opacity.Enabled && strings.TrimSpace(c.Opacity.Property) == "" {
		result = multierror.Append(result, &ValidationError{Path: "opacity.property", Err: fmt.Errorf("opacity.property is required when opacity is enabled")})
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = formatErrors
	return result
}

func formatErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = "  " + err.Error()
	}
	return fmt.Sprintf("%d configuration errors:\n%s", len(errs), strings.Join(lines, "\n"))
}
