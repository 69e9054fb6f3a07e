// Package scene renders a YAML description of a desktop through the
// compositor on the headless backend. It is a debugging aid: the output is
// exactly what the compositor would have put on screen.
package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/xcomp/internal/compositor"
	"github.com/1broseidon/xcomp/internal/headless"
	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Window is one client window. Windows are listed bottom-to-top.
type Window struct {
	Name        string       `yaml:"name"`
	X           int          `yaml:"x"`
	Y           int          `yaml:"y"`
	Width       int          `yaml:"width"`
	Height      int          `yaml:"height"`
	BorderWidth int          `yaml:"border_width"`
	Color       string       `yaml:"color"`
	ARGB        bool         `yaml:"argb"`
	InputOnly   bool         `yaml:"input_only"`
	Unmapped    bool         `yaml:"unmapped"`
	Opacity     *float64     `yaml:"opacity"`
	Shape       *region.Rect `yaml:"shape"`
}

type Scene struct {
	Screen Size `yaml:"screen"`
	// Wallpaper, when set, is published as the root background pixmap.
	Wallpaper string   `yaml:"wallpaper"`
	Windows   []Window `yaml:"windows"`
}

// Result is a rendered scene.
type Result struct {
	Image  *image.RGBA
	Frames int
	// Composites counts every composite operation issued.
	Composites int
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scene strictly and validates it.
func Parse(data []byte) (*Scene, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scene
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scene) Validate() error {
	if s.Screen.Width <= 0 || s.Screen.Height <= 0 {
		return fmt.Errorf("screen: width and height must be > 0")
	}
	if s.Wallpaper != "" {
		if _, err := ParseColor(s.Wallpaper); err != nil {
			return fmt.Errorf("wallpaper: %w", err)
		}
	}
	for i, w := range s.Windows {
		label := w.Name
		if label == "" {
			label = strconv.Itoa(i)
		}
		if w.Width <= 0 || w.Height <= 0 {
			return fmt.Errorf("windows[%s]: width and height must be > 0", label)
		}
		if w.BorderWidth < 0 {
			return fmt.Errorf("windows[%s]: border_width must be >= 0", label)
		}
		if !w.InputOnly {
			if _, err := ParseColor(w.Color); err != nil {
				return fmt.Errorf("windows[%s]: %w", label, err)
			}
		}
		if w.Opacity != nil && (*w.Opacity < 0 || *w.Opacity > 1) {
			return fmt.Errorf("windows[%s]: opacity must be within [0, 1]", label)
		}
	}
	return nil
}

// Render composites s and returns the final screen. opts.OpacityProperty
// only selects whether opacity is tracked; the headless server publishes
// opacity under its own property name.
func Render(s *Scene, opts compositor.Options) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	d := headless.New(s.Screen.Width, s.Screen.Height)
	if s.Wallpaper != "" {
		c, _ := ParseColor(s.Wallpaper)
		d.SetWallpaper(c)
	}
	if opts.OpacityProperty != "" {
		opts.OpacityProperty = headless.OpacityProperty
	}

	comp := compositor.New(d, opts)
	if err := comp.Start(); err != nil {
		return nil, err
	}

	ids := make([]platform.WindowID, len(s.Windows))
	for i, w := range s.Windows {
		fill, _ := ParseColor(w.Color)
		ids[i] = d.CreateWindow(headless.WindowOptions{
			X:           w.X,
			Y:           w.Y,
			Width:       w.Width,
			Height:      w.Height,
			BorderWidth: w.BorderWidth,
			Color:       fill,
			ARGB:        w.ARGB,
			InputOnly:   w.InputOnly,
			Mapped:      !w.Unmapped,
		})
	}
	if err := drain(comp, d); err != nil {
		return nil, err
	}

	// Opacity and shape are only reported for windows the compositor
	// already watches.
	for i, w := range s.Windows {
		if w.Opacity != nil {
			d.SetOpacity(ids[i], *w.Opacity)
		}
		if w.Shape != nil {
			d.ShapeWindow(ids[i], w.Shape)
		}
	}
	if err := drain(comp, d); err != nil {
		return nil, err
	}

	return &Result{
		Image:      d.Screen(),
		Frames:     comp.Frames(),
		Composites: len(d.Composites()),
	}, nil
}

func drain(c *compositor.Compositor, d *headless.Display) error {
	err := c.Run(context.Background(), d)
	if errors.Is(err, platform.ErrClosed) {
		return nil
	}
	return err
}

// WritePNG encodes img to path.
func WritePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") || (len(s) != 7 && len(s) != 9) {
		return color.NRGBA{}, fmt.Errorf("color %q must have the form #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	if len(s) == 7 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
