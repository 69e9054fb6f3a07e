package headless

import (
	"image"
	"image/color"
	"math"
	"slices"

	"golang.org/x/image/draw"

	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

// OpacityProperty is the window property holding a 32-bit opacity.
const OpacityProperty = "_NET_WM_WINDOW_OPACITY"

// WallpaperProperty is the root property a wallpaper setter publishes.
const WallpaperProperty = "_XROOTPMAP_ID"

// WindowOptions describe a client window.
type WindowOptions struct {
	X, Y             int
	Width, Height    int
	BorderWidth      int
	Color            color.NRGBA
	ARGB             bool
	InputOnly        bool
	OverrideRedirect bool
	Mapped           bool
}

// CreateWindow adds a window on top of the stack and queues its creation,
// followed by a map and the initial damage when it starts mapped.
func (d *Display) CreateWindow(opts WindowOptions) platform.WindowID {
	id := platform.WindowID(d.alloc())
	d.windows[id] = &window{
		id:               id,
		rect:             region.Rect{X: opts.X, Y: opts.Y, Width: opts.Width, Height: opts.Height},
		borderWidth:      opts.BorderWidth,
		inputOnly:        opts.InputOnly,
		overrideRedirect: opts.OverrideRedirect,
		argb:             opts.ARGB,
		fill:             opts.Color,
		props:            make(map[string]uint32),
	}
	d.stack = append(d.stack, id)
	d.queue = append(d.queue, platform.CreateEvent{Window: id})
	if opts.Mapped {
		d.MapWindow(id)
	}
	return id
}

// MapWindow makes id visible and reports its whole area as damaged.
func (d *Display) MapWindow(id platform.WindowID) {
	w, ok := d.windows[id]
	if !ok || w.mapped {
		return
	}
	w.mapped = true
	d.queue = append(d.queue, platform.MapEvent{Window: id})
	d.damage(w, w.wholeArea())
}

// UnmapWindow hides id.
func (d *Display) UnmapWindow(id platform.WindowID) {
	w, ok := d.windows[id]
	if !ok || !w.mapped {
		return
	}
	w.mapped = false
	w.damage = region.Set{}
	d.queue = append(d.queue, platform.UnmapEvent{Window: id})
}

// DestroyWindow removes id.
func (d *Display) DestroyWindow(id platform.WindowID) {
	if _, ok := d.windows[id]; !ok {
		return
	}
	d.UnmapWindow(id)
	delete(d.windows, id)
	d.stack = slices.DeleteFunc(d.stack, func(w platform.WindowID) bool { return w == id })
	d.queue = append(d.queue, platform.DestroyEvent{Window: id})
}

// Draw changes part of a window's contents. Only the fill color is modelled,
// so the whole window takes the new color while rect, relative to the
// window origin, is what gets reported.
func (d *Display) Draw(id platform.WindowID, rect region.Rect, c color.NRGBA) {
	w, ok := d.windows[id]
	if !ok {
		return
	}
	w.fill = c
	d.damage(w, rect)
}

func (d *Display) damage(w *window, rect region.Rect) {
	if !w.watched || !w.mapped {
		return
	}
	w.damage = w.damage.Union(region.New(rect))
	d.queue = append(d.queue, platform.DamageEvent{
		Window: w.id,
		Area:   rect,
	})
}

// ConfigureWindow moves and resizes id, keeping its stacking position.
func (d *Display) ConfigureWindow(id platform.WindowID, rect region.Rect, borderWidth int) {
	w, ok := d.windows[id]
	if !ok {
		return
	}
	w.rect = rect
	w.borderWidth = borderWidth
	d.configured(w)
}

// RaiseWindow restacks id to the top and reports it as a configure.
func (d *Display) RaiseWindow(id platform.WindowID) {
	w, ok := d.windows[id]
	if !ok {
		return
	}
	d.stack = slices.DeleteFunc(d.stack, func(s platform.WindowID) bool { return s == id })
	d.stack = append(d.stack, id)
	d.configured(w)
}

// RestackAbove reports id as sitting directly above sibling, whether or not
// the sibling exists. It models a configure whose above-sibling the
// compositor may not know.
func (d *Display) RestackAbove(id, sibling platform.WindowID) {
	w, ok := d.windows[id]
	if !ok {
		return
	}
	d.queue = append(d.queue, d.configureEvent(w, sibling))
}

// CirculateWindow raises or lowers id to an end of the stack.
func (d *Display) CirculateWindow(id platform.WindowID, place int) {
	if _, ok := d.windows[id]; !ok {
		return
	}
	d.stack = slices.DeleteFunc(d.stack, func(s platform.WindowID) bool { return s == id })
	if place == platform.PlaceOnTop {
		d.stack = append(d.stack, id)
	} else {
		d.stack = slices.Insert(d.stack, 0, id)
	}
	d.queue = append(d.queue, platform.CirculateEvent{Window: id, Place: place})
}

func (d *Display) configured(w *window) {
	above := platform.WindowID(platform.None)
	if i := slices.Index(d.stack, w.id); i > 0 {
		above = d.stack[i-1]
	}
	d.queue = append(d.queue, d.configureEvent(w, above))
}

func (d *Display) configureEvent(w *window, above platform.WindowID) platform.ConfigureEvent {
	return platform.ConfigureEvent{
		Window:           w.id,
		Above:            above,
		X:                w.rect.X,
		Y:                w.rect.Y,
		Width:            w.rect.Width,
		Height:           w.rect.Height,
		BorderWidth:      w.borderWidth,
		OverrideRedirect: w.overrideRedirect,
	}
}

// ShapeWindow sets the bounding shape of id, relative to its origin. A nil
// shape restores the rectangular default.
func (d *Display) ShapeWindow(id platform.WindowID, shape *region.Rect) {
	w, ok := d.windows[id]
	if !ok {
		return
	}
	ev := platform.ShapeEvent{Window: id, Kind: platform.ShapeBounding}
	if shape != nil {
		s := *shape
		w.shape = &s
		ev.Bounds = s
		ev.Shaped = true
	} else {
		w.shape = nil
		ev.Bounds = region.Rect{Width: w.rect.Width, Height: w.rect.Height}
	}
	if w.watched {
		d.queue = append(d.queue, ev)
	}
}

// SetOpacity publishes an opacity property on id. Values at or above one
// delete the property.
func (d *Display) SetOpacity(id platform.WindowID, opacity float64) {
	w, ok := d.windows[id]
	if !ok {
		return
	}
	if opacity >= 1 {
		delete(w.props, OpacityProperty)
	} else {
		w.props[OpacityProperty] = uint32(math.Round(math.Max(opacity, 0) * math.MaxUint32))
	}
	if w.propsWanted {
		d.queue = append(d.queue, platform.PropertyEvent{Window: id, Name: OpacityProperty})
	}
}

// SetWallpaper publishes a solid wallpaper pixmap of color c on the root.
func (d *Display) SetWallpaper(c color.NRGBA) platform.Pixmap {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	p := platform.Pixmap(d.alloc())
	d.pixmaps[p] = img
	d.rootProps[WallpaperProperty] = uint32(p)
	d.queue = append(d.queue, platform.PropertyEvent{Window: d.root, Name: WallpaperProperty})
	return p
}

// ResizeScreen changes the root size, as a display reconfiguration would.
func (d *Display) ResizeScreen(width, height int) {
	d.width, d.height = width, height
	d.pictures[d.rootPicture].img = image.NewRGBA(image.Rect(0, 0, width, height))
	d.queue = append(d.queue, platform.ConfigureEvent{
		Window: d.root,
		Width:  width,
		Height: height,
	})
}

// Expose queues root expose events for rects as one series.
func (d *Display) Expose(rects ...region.Rect) {
	for i, r := range rects {
		d.queue = append(d.queue, platform.ExposeEvent{
			Window: d.root,
			Rect:   r,
			Count:  len(rects) - 1 - i,
		})
	}
}

// ClaimOwnership makes another compositor own the display.
func (d *Display) ClaimOwnership(owner platform.WindowID, name string) {
	d.ownerID = owner
	d.owner = name
}

// Grabbed reports whether the server is currently grabbed.
func (d *Display) Grabbed() bool { return d.grabbed }
