package compositor

import (
	"math"

	"github.com/1broseidon/xcomp/internal/platform"
)

// classify picks w's blend mode from its pixel format and opacity, rebuilds
// the alpha mask and queues the window's area for repaint under the new mode.
func (c *Compositor) classify(w *Window) {
	c.releaseAlphaMask(w)

	// Input-only windows have nothing to draw.
	if w.InputOnly {
		return
	}

	mode := Opaque
	switch {
	case w.Format != nil && w.Format.HasAlpha():
		mode = ARGB
	case w.Opacity < 1:
		mode = Translucent
	}

	if w.Opacity < 1 {
		mask, err := c.backend.CreateAlphaPicture(w.Opacity)
		if err != nil {
			c.logger.Debug("alpha mask failed", "window", w, "error", err)
		} else {
			w.alphaMask = mask
		}
	}
	w.Mode = mode

	if w.extents != platform.None {
		damage := c.backend.CreateRegion(nil)
		c.backend.CopyRegion(damage, w.extents)
		c.damage.Add(damage)
	}
}

// SetOpacity sets the constant opacity of window id, clamped to [0, 1].
// Mapped windows are reclassified immediately.
func (c *Compositor) SetOpacity(id platform.WindowID, opacity float64) {
	w := c.windows.Find(id)
	if w == nil {
		return
	}
	opacity = clampOpacity(opacity)
	if opacity == w.Opacity {
		return
	}
	w.Opacity = opacity
	if w.Mapped {
		c.classify(w)
	}
}

func clampOpacity(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
