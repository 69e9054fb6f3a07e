package compositor

import (
	"slices"

	"github.com/1broseidon/xcomp/internal/platform"
)

// Handle applies one protocol event to the compositor state. It never
// paints, except for shape changes, which repaint their own area at once.
func (c *Compositor) Handle(ev platform.Event) {
	switch e := ev.(type) {
	case platform.CreateEvent:
		c.AddWindow(e.Window)
	case platform.ConfigureEvent:
		c.ConfigureWindow(e)
	case platform.DestroyEvent:
		c.RemoveWindow(e.Window)
	case platform.MapEvent:
		c.MapWindow(e.Window)
	case platform.UnmapEvent:
		c.UnmapWindow(e.Window)
	case platform.ReparentEvent:
		if e.Parent == c.root {
			c.AddWindow(e.Window)
		} else {
			c.RemoveWindow(e.Window)
		}
	case platform.CirculateEvent:
		c.CirculateWindow(e)
	case platform.ExposeEvent:
		c.exposeRoot(e)
	case platform.PropertyEvent:
		c.propertyChanged(e)
	case platform.DamageEvent:
		c.DamageWindow(e.Window)
	case platform.ShapeEvent:
		c.ShapeWindow(e)
	}
}

// MapWindow marks id visible and reclassifies it. Painting waits for the
// window's first damage report.
func (c *Compositor) MapWindow(id platform.WindowID) {
	w := c.windows.Find(id)
	if w == nil {
		return
	}
	w.Mapped = true
	if c.opts.OpacityProperty != "" && !w.InputOnly {
		c.backend.SelectProperties(id, true)
	}
	c.classify(w)
	w.Damaged = false
	c.damage.MarkGeometry()
}

// UnmapWindow hides id and releases its render resources.
func (c *Compositor) UnmapWindow(id platform.WindowID) {
	w := c.windows.Find(id)
	if w == nil {
		return
	}
	w.Mapped = false
	c.finishUnmap(w)
}

// ConfigureWindow applies a move, resize or restack.
func (c *Compositor) ConfigureWindow(ev platform.ConfigureEvent) {
	w := c.windows.Find(ev.Window)
	if w == nil {
		if ev.Window == c.root {
			c.resizeRoot(ev.Width, ev.Height)
		}
		return
	}

	damage := c.backend.CreateRegion(nil)
	if w.extents != platform.None {
		c.backend.CopyRegion(damage, w.extents)
	}

	w.ShapeBounds.X -= w.X
	w.ShapeBounds.Y -= w.Y
	w.X, w.Y = ev.X, ev.Y
	if w.Width != ev.Width || w.Height != ev.Height || w.BorderWidth != ev.BorderWidth {
		c.releaseSource(w)
	}
	w.Width, w.Height = ev.Width, ev.Height
	w.BorderWidth = ev.BorderWidth
	w.OverrideRedirect = ev.OverrideRedirect

	c.restack(w, ev.Above)

	extents := c.extentsRegion(w)
	c.backend.UnionRegion(damage, damage, extents)
	c.backend.DestroyRegion(extents)
	c.damage.Add(damage)

	w.ShapeBounds.X += w.X
	w.ShapeBounds.Y += w.Y
	if !w.Shaped {
		w.ShapeBounds.Width = w.Width
		w.ShapeBounds.Height = w.Height
	}

	c.damage.MarkGeometry()
}

// restack moves w directly above sibling above, or to the bottom when above
// is None.
func (c *Compositor) restack(w *Window, above platform.WindowID) {
	if _, placed := c.windows.MoveBefore(w.ID, above); placed {
		return
	}
	if c.opts.DropOnMissingTarget {
		c.logger.Debug("restack target unknown, dropping window", "window", w, "above", above)
		c.releaseWindow(w)
		return
	}
	c.windows.InsertTop(w)
}

// CirculateWindow raises or lowers a window to an end of the stack.
func (c *Compositor) CirculateWindow(ev platform.CirculateEvent) {
	if c.windows.Find(ev.Window) == nil {
		return
	}
	if ev.Place == platform.PlaceOnTop {
		c.windows.MoveToTop(ev.Window)
	} else {
		c.windows.MoveBefore(ev.Window, platform.None)
	}
	c.damage.MarkGeometry()
}

// DamageWindow folds a window's pending damage into the accumulator. The
// first report after a map covers the whole window; later ones only the
// reported parts.
func (c *Compositor) DamageWindow(id platform.WindowID) {
	w := c.windows.Find(id)
	if w == nil {
		return
	}

	var parts platform.Region
	if !w.Damaged {
		parts = c.extentsRegion(w)
		c.backend.SubtractDamage(id, platform.None)
	} else {
		parts = c.backend.CreateRegion(nil)
		c.backend.SubtractDamage(id, parts)
		c.backend.TranslateRegion(parts, w.X+w.BorderWidth, w.Y+w.BorderWidth)
	}
	c.damage.Add(parts)
	w.Damaged = true
}

func (c *Compositor) exposeRoot(ev platform.ExposeEvent) {
	if ev.Window != c.root {
		return
	}
	c.exposed = append(c.exposed, ev.Rect)
	if ev.Count > 0 {
		return
	}
	c.damage.Add(c.backend.CreateRegion(c.exposed))
	c.exposed = nil
}

func (c *Compositor) propertyChanged(ev platform.PropertyEvent) {
	if ev.Window == c.root {
		if slices.Contains(c.opts.BackgroundProperties, ev.Name) {
			c.dropRootTile()
			c.DamageScreen()
		}
		return
	}
	if c.opts.OpacityProperty == "" || ev.Name != c.opts.OpacityProperty {
		return
	}
	opacity, ok := c.backend.WindowOpacity(ev.Window)
	if !ok {
		opacity = 1
	}
	c.SetOpacity(ev.Window, opacity)
}
