// Package compositor redraws the desktop from redirected window contents.
//
// A Compositor tracks every top-level window in stacking order, collects
// damage reported by the window system, and repaints the damaged part of the
// screen once per batch of events. Painting runs in two passes: opaque
// windows front-to-back, shrinking the still-visible region as they go, then
// translucent windows back-to-front inside the area left visible above them.
//
// The Compositor is not safe for concurrent use; all calls are expected to
// come from the single goroutine that drains the event source.
package compositor

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

// DefaultBackgroundProperties are the root properties searched for a
// wallpaper pixmap.
var DefaultBackgroundProperties = []string{"_XROOTPMAP_ID", "_XSETROOT_ID"}

// DefaultFallbackColor fills the background when no wallpaper is published.
var DefaultFallbackColor = platform.Color{Red: 0x8080, Green: 0x8080, Blue: 0x8080, Alpha: 0xffff}

// Options tune the compositor.
type Options struct {
	BackgroundProperties []string
	FallbackColor        *platform.Color
	// OpacityProperty names the per-window opacity property. Empty disables
	// opacity tracking.
	OpacityProperty string
	// DropOnMissingTarget keeps the historical behaviour of forgetting a
	// window restacked above a sibling that is not tracked. When false the
	// window is placed on top instead.
	DropOnMissingTarget bool
	Logger              *slog.Logger
}

// Compositor owns the window registry, the damage accumulator and the
// render resources shared by every frame.
type Compositor struct {
	backend platform.Backend
	opts    Options
	logger  *slog.Logger

	windows *Registry
	damage  *Accumulator

	root          platform.WindowID
	width, height int

	rootPicture platform.Picture
	rootBuffer  platform.Picture
	rootTile    platform.Picture

	exposed []region.Rect
	frames  int
}

// New creates a compositor driving backend.
func New(backend platform.Backend, opts Options) *Compositor {
	if len(opts.BackgroundProperties) == 0 {
		opts.BackgroundProperties = DefaultBackgroundProperties
	}
	if opts.FallbackColor == nil {
		c := DefaultFallbackColor
		opts.FallbackColor = &c
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	width, height := backend.ScreenSize()
	return &Compositor{
		backend:     backend,
		opts:        opts,
		logger:      logger,
		windows:     NewRegistry(),
		damage:      NewAccumulator(backend),
		root:        backend.RootWindow(),
		width:       width,
		height:      height,
		rootPicture: backend.RootPicture(),
	}
}

// Windows exposes the stacking registry.
func (c *Compositor) Windows() *Registry { return c.windows }

// Damage exposes the damage accumulator.
func (c *Compositor) Damage() *Accumulator { return c.damage }

// Frames returns the number of paint passes run so far.
func (c *Compositor) Frames() int { return c.frames }

// ScreenSize returns the current screen dimensions.
func (c *Compositor) ScreenSize() (int, int) { return c.width, c.height }

// Start redirects the root's children, adopts the existing windows in their
// current stacking order and paints the whole screen once.
func (c *Compositor) Start() error {
	if err := c.backend.RedirectSubwindows(); err != nil {
		return fmt.Errorf("redirect subwindows: %w", err)
	}
	if err := c.backend.SelectRootInput(); err != nil {
		return fmt.Errorf("select root input: %w", err)
	}

	c.backend.GrabServer()
	children, err := c.backend.Children()
	if err == nil {
		// Children come bottom-to-top and every insert goes on top.
		for _, id := range children {
			c.AddWindow(id)
		}
	}
	c.backend.UngrabServer()
	if err != nil {
		return fmt.Errorf("query tree: %w", err)
	}

	c.logger.Info("compositor started",
		"windows", c.windows.Len(),
		"width", c.width,
		"height", c.height)

	c.Paint(platform.None)
	return nil
}

// AddWindow starts tracking id on top of the stack. Windows whose attributes
// cannot be read are skipped.
func (c *Compositor) AddWindow(id platform.WindowID) {
	if id == c.root || c.windows.Find(id) != nil {
		return
	}
	attrs, err := c.backend.WindowAttributes(id)
	if err != nil {
		c.logger.Debug("skipping window", "window", id, "error", err)
		return
	}

	w := newWindow(id, attrs)
	if !w.InputOnly {
		if err := c.backend.WatchWindow(id); err != nil {
			c.logger.Debug("watch window failed", "window", id, "error", err)
		}
	}
	if c.opts.OpacityProperty != "" {
		if opacity, ok := c.backend.WindowOpacity(id); ok {
			w.Opacity = clampOpacity(opacity)
		}
	}
	c.windows.InsertTop(w)

	if attrs.Mapped {
		c.MapWindow(id)
	}
}

// RemoveWindow forgets id, releasing everything its record owns and
// damaging the area it covered.
func (c *Compositor) RemoveWindow(id platform.WindowID) {
	w := c.windows.Remove(id)
	if w == nil {
		return
	}
	c.releaseWindow(w)
}

func (c *Compositor) releaseWindow(w *Window) {
	c.finishUnmap(w)
	if !w.InputOnly {
		c.backend.UnwatchWindow(w.ID)
	}
}

// finishUnmap releases every render resource of w and queues its last
// extents as damage. The record itself survives.
func (c *Compositor) finishUnmap(w *Window) {
	w.Damaged = false

	if w.extents != platform.None {
		c.damage.Add(w.extents)
		w.extents = platform.None
	}
	c.releaseSource(w)
	c.releaseAlphaMask(w)

	if c.opts.OpacityProperty != "" {
		c.backend.SelectProperties(w.ID, false)
	}

	c.destroyRegion(&w.borderSize)
	c.destroyRegion(&w.borderClip)

	c.damage.MarkGeometry()
}

func (c *Compositor) releaseSource(w *Window) {
	if w.picture != platform.None {
		c.backend.FreePicture(w.picture)
		w.picture = platform.None
	}
	if w.pixmap != platform.None {
		c.backend.FreePixmap(w.pixmap)
		w.pixmap = platform.None
	}
}

func (c *Compositor) releaseAlphaMask(w *Window) {
	if w.alphaMask != platform.None {
		c.backend.FreePicture(w.alphaMask)
		w.alphaMask = platform.None
	}
}

func (c *Compositor) destroyRegion(r *platform.Region) {
	if *r != platform.None {
		c.backend.DestroyRegion(*r)
		*r = platform.None
	}
}

// extentsRegion creates a new region covering w's screen-space extents.
func (c *Compositor) extentsRegion(w *Window) platform.Region {
	return c.backend.CreateRegion([]region.Rect{w.Extents()})
}

// borderSizeRegion creates a new region with w's bounding shape in screen
// space.
func (c *Compositor) borderSizeRegion(w *Window) platform.Region {
	r := c.backend.CreateWindowRegion(w.ID)
	if r == platform.None {
		return platform.None
	}
	c.backend.TranslateRegion(r, w.X+w.BorderWidth, w.Y+w.BorderWidth)
	return r
}

func (c *Compositor) screenRegion() platform.Region {
	return c.backend.CreateRegion([]region.Rect{{Width: c.width, Height: c.height}})
}

// DamageScreen queues the whole screen for repaint.
func (c *Compositor) DamageScreen() {
	c.damage.Add(c.screenRegion())
}
