package compositor

import (
	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

// ShapeWindow records a new shape for a window and immediately repaints the
// union of its old and new shape bounds, independently of pending damage.
// Shapes are tracked as bounding rectangles only.
func (c *Compositor) ShapeWindow(ev platform.ShapeEvent) {
	w := c.windows.Find(ev.Window)
	if w == nil {
		return
	}
	if ev.Kind != platform.ShapeBounding && ev.Kind != platform.ShapeClip {
		return
	}
	c.damage.MarkGeometry()

	before := c.backend.CreateRegion([]region.Rect{w.ShapeBounds})

	if ev.Shaped {
		w.Shaped = true
		w.ShapeBounds = ev.Bounds.Translate(w.X, w.Y)
	} else {
		w.Shaped = false
		w.ShapeBounds = region.Rect{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height}
	}

	after := c.backend.CreateRegion([]region.Rect{w.ShapeBounds})
	c.backend.UnionRegion(before, before, after)
	c.backend.DestroyRegion(after)

	c.Paint(before)
}
