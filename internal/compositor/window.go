package compositor

import (
	"fmt"

	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

// BlendMode decides how a window's pixels are combined with what lies
// beneath it.
type BlendMode int

const (
	// Opaque windows overwrite the destination and hide everything below.
	Opaque BlendMode = iota
	// Translucent windows are blended through a constant alpha mask.
	Translucent
	// ARGB windows are blended through their own alpha channel.
	ARGB
)

func (m BlendMode) String() string {
	switch m {
	case Opaque:
		return "opaque"
	case Translucent:
		return "translucent"
	case ARGB:
		return "argb"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Window is the compositor's record of one top-level window. Every handle
// field is owned by the record; setting a new one always destroys the old.
type Window struct {
	ID platform.WindowID

	X, Y             int
	Width, Height    int
	BorderWidth      int
	OverrideRedirect bool
	Mapped           bool
	InputOnly        bool
	Visual           platform.Visual
	Format           *platform.PixelFormat

	Mode    BlendMode
	Opacity float64
	// Damaged is false until the first damage report after a map.
	Damaged bool

	Shaped      bool
	ShapeBounds region.Rect

	pixmap    platform.Pixmap
	picture   platform.Picture
	alphaMask platform.Picture

	borderSize platform.Region
	extents    platform.Region
	// borderClip lives for a single paint pass.
	borderClip platform.Region
}

func newWindow(id platform.WindowID, attrs platform.Attributes) *Window {
	return &Window{
		ID:               id,
		X:                attrs.X,
		Y:                attrs.Y,
		Width:            attrs.Width,
		Height:           attrs.Height,
		BorderWidth:      attrs.BorderWidth,
		OverrideRedirect: attrs.OverrideRedirect,
		InputOnly:        attrs.InputOnly,
		Visual:           attrs.Visual,
		Format:           attrs.Format,
		Opacity:          1,
		ShapeBounds: region.Rect{
			X:      attrs.X,
			Y:      attrs.Y,
			Width:  attrs.Width,
			Height: attrs.Height,
		},
	}
}

// OuterWidth is the width including both borders.
func (w *Window) OuterWidth() int { return w.Width + 2*w.BorderWidth }

// OuterHeight is the height including both borders.
func (w *Window) OuterHeight() int { return w.Height + 2*w.BorderWidth }

// Extents returns the window's bounding rectangle in screen space, border
// included.
func (w *Window) Extents() region.Rect {
	return region.Rect{X: w.X, Y: w.Y, Width: w.OuterWidth(), Height: w.OuterHeight()}
}

// onScreen reports whether any part of the window can be inside a screen of
// the given size.
func (w *Window) onScreen(width, height int) bool {
	return w.X+w.Width >= 1 && w.Y+w.Height >= 1 && w.X < width && w.Y < height
}

func (w *Window) String() string {
	return fmt.Sprintf("0x%x", uint32(w.ID))
}
