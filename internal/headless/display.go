// Package headless is an in-memory display server for the compositor.
//
// A Display implements platform.Backend, platform.EventSource and
// platform.Registrar without a window system: regions are rectangle sets,
// pictures are RGBA images and window contents are flat colors. Helper
// methods play the part of clients, changing window state and queueing the
// events a real server would report. Every region handle is accounted for so
// tests can check that nothing leaks or is freed twice.
package headless

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"golang.org/x/image/draw"

	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

// Visuals served by the display.
const (
	VisualRGB  platform.Visual = 0x21
	VisualARGB platform.Visual = 0x22
)

// ErrNoWindow is returned for operations on unknown windows.
var ErrNoWindow = errors.New("no such window")

// CompositeCall records one Composite request.
type CompositeCall struct {
	Op        platform.Op
	Src       platform.Picture
	Mask      platform.Picture
	Dst       platform.Picture
	Rect      region.Rect
	// SrcWindow is the window whose contents Src shows, if any.
	SrcWindow platform.WindowID
	// Clip is the part of Rect actually drawn.
	Clip      region.Set
}

// Pixels is the number of destination pixels the call touched.
func (c CompositeCall) Pixels() int { return c.Clip.Area() }

type window struct {
	id               platform.WindowID
	rect             region.Rect
	borderWidth      int
	mapped           bool
	inputOnly        bool
	overrideRedirect bool
	argb             bool
	fill             color.NRGBA

	// shape is the bounding shape relative to the window origin, nil when
	// unshaped.
	shape *region.Rect

	props       map[string]uint32
	watched     bool
	propsWanted bool
	// damage is pending, window-relative damage not yet acknowledged.
	damage      region.Set
}

func (w *window) outer() region.Rect {
	return region.Rect{
		X:      w.rect.X,
		Y:      w.rect.Y,
		Width:  w.rect.Width + 2*w.borderWidth,
		Height: w.rect.Height + 2*w.borderWidth,
	}
}

// wholeArea covers the window and its border, relative to the origin.
func (w *window) wholeArea() region.Rect {
	outer := w.outer()
	return region.Rect{X: -w.borderWidth, Y: -w.borderWidth, Width: outer.Width, Height: outer.Height}
}

type picture struct {
	img    *image.RGBA
	solid  image.Image
	window platform.WindowID
	repeat bool
	clip   *region.Set
}

// Display is an in-memory X-like server. It is not safe for concurrent use.
type Display struct {
	width, height int
	root          platform.WindowID
	rootPicture   platform.Picture

	next uint32

	windows map[platform.WindowID]*window
	// stack lists the root's children bottom-to-top.
	stack   []platform.WindowID

	regions  map[platform.Region]region.Set
	pictures map[platform.Picture]*picture
	pixmaps  map[platform.Pixmap]*image.RGBA

	rootProps map[string]uint32
	queue     []platform.Event

	owner      string
	ownerID    platform.WindowID
	redirected bool
	grabbed    bool

	// FailBuffer makes CreateBufferPicture fail.
	FailBuffer bool

	regionsCreated   int
	regionsDestroyed int
	badHandles       int
	syncs            int

	rootClips  []region.Set
	composites []CompositeCall
}

// New returns a display with an empty root of the given size.
func New(width, height int) *Display {
	d := &Display{
		width:     width,
		height:    height,
		windows:   make(map[platform.WindowID]*window),
		regions:   make(map[platform.Region]region.Set),
		pictures:  make(map[platform.Picture]*picture),
		pixmaps:   make(map[platform.Pixmap]*image.RGBA),
		rootProps: make(map[string]uint32),
	}
	d.root = platform.WindowID(d.alloc())
	d.rootPicture = platform.Picture(d.alloc())
	d.pictures[d.rootPicture] = &picture{img: image.NewRGBA(image.Rect(0, 0, width, height))}
	return d
}

func (d *Display) alloc() uint32 {
	d.next++
	return d.next
}

// Regions

func (d *Display) region(r platform.Region) (region.Set, bool) {
	s, ok := d.regions[r]
	if !ok {
		d.badHandles++
	}
	return s, ok
}

func (d *Display) CreateRegion(rects []region.Rect) platform.Region {
	r := platform.Region(d.alloc())
	d.regions[r] = region.New(rects...)
	d.regionsCreated++
	return r
}

func (d *Display) CreateWindowRegion(id platform.WindowID) platform.Region {
	w, ok := d.windows[id]
	if !ok {
		return platform.None
	}
	bounds := region.Rect{
		X:      -w.borderWidth,
		Y:      -w.borderWidth,
		Width:  w.rect.Width + 2*w.borderWidth,
		Height: w.rect.Height + 2*w.borderWidth,
	}
	if w.shape != nil {
		bounds = *w.shape
	}
	return d.CreateRegion([]region.Rect{bounds})
}

func (d *Display) UnionRegion(dst, a, b platform.Region) {
	d.combine(dst, a, b, region.Set.Union)
}

func (d *Display) SubtractRegion(dst, a, b platform.Region) {
	d.combine(dst, a, b, region.Set.Subtract)
}

func (d *Display) IntersectRegion(dst, a, b platform.Region) {
	d.combine(dst, a, b, region.Set.Intersect)
}

func (d *Display) combine(dst, a, b platform.Region, op func(region.Set, region.Set) region.Set) {
	sa, okA := d.region(a)
	sb, okB := d.region(b)
	if _, ok := d.region(dst); !ok || !okA || !okB {
		return
	}
	d.regions[dst] = op(sa, sb)
}

func (d *Display) TranslateRegion(r platform.Region, dx, dy int) {
	if s, ok := d.region(r); ok {
		d.regions[r] = s.Translate(dx, dy)
	}
}

func (d *Display) CopyRegion(dst, src platform.Region) {
	s, ok := d.region(src)
	if _, okDst := d.region(dst); !ok || !okDst {
		return
	}
	d.regions[dst] = s
}

func (d *Display) DestroyRegion(r platform.Region) {
	if _, ok := d.region(r); !ok {
		return
	}
	delete(d.regions, r)
	d.regionsDestroyed++
}

func (d *Display) SetPictureClip(p platform.Picture, r platform.Region) {
	pic, ok := d.pictures[p]
	if !ok {
		d.badHandles++
		return
	}
	if r == platform.None {
		pic.clip = nil
	} else {
		s, ok := d.region(r)
		if !ok {
			return
		}
		pic.clip = &s
	}
	if p == d.rootPicture {
		var s region.Set
		if pic.clip != nil {
			s = *pic.clip
		} else {
			s = region.New(region.Rect{Width: d.width, Height: d.height})
		}
		d.rootClips = append(d.rootClips, s)
	}
}

// RegionRects returns the contents of r.
func (d *Display) RegionRects(r platform.Region) []region.Rect {
	return d.regions[r].Rects()
}

// LiveRegions is the number of region handles created and not destroyed.
func (d *Display) LiveRegions() int { return len(d.regions) }

// RegionsCreated is the total number of regions ever created.
func (d *Display) RegionsCreated() int { return d.regionsCreated }

// RegionsDestroyed is the total number of regions destroyed.
func (d *Display) RegionsDestroyed() int { return d.regionsDestroyed }

// BadHandles counts uses of unknown or already destroyed handles.
func (d *Display) BadHandles() int { return d.badHandles }

// Backend

func (d *Display) RootWindow() platform.WindowID { return d.root }
func (d *Display) ScreenSize() (int, int)        { return d.width, d.height }
func (d *Display) RootPicture() platform.Picture { return d.rootPicture }
func (d *Display) GrabServer()                   { d.grabbed = true }
func (d *Display) UngrabServer()                 { d.grabbed = false }
func (d *Display) Sync()                         { d.syncs++ }

// Syncs returns how many round trips the compositor requested.
func (d *Display) Syncs() int { return d.syncs }

func (d *Display) RedirectSubwindows() error {
	if d.redirected {
		return errors.New("subwindows already redirected")
	}
	d.redirected = true
	return nil
}

func (d *Display) SelectRootInput() error { return nil }

func (d *Display) Children() ([]platform.WindowID, error) {
	return slices.Clone(d.stack), nil
}

func (d *Display) WindowAttributes(id platform.WindowID) (platform.Attributes, error) {
	w, ok := d.windows[id]
	if !ok {
		return platform.Attributes{}, fmt.Errorf("window 0x%x: %w", uint32(id), ErrNoWindow)
	}
	attrs := platform.Attributes{
		X:                w.rect.X,
		Y:                w.rect.Y,
		Width:            w.rect.Width,
		Height:           w.rect.Height,
		BorderWidth:      w.borderWidth,
		Mapped:           w.mapped,
		InputOnly:        w.inputOnly,
		OverrideRedirect: w.overrideRedirect,
	}
	if w.inputOnly {
		return attrs, nil
	}
	attrs.Visual = VisualRGB
	attrs.Format = &platform.PixelFormat{Direct: true}
	if w.argb {
		attrs.Visual = VisualARGB
		attrs.Format.AlphaMask = 0xff
	}
	return attrs, nil
}

func (d *Display) WatchWindow(id platform.WindowID) error {
	w, ok := d.windows[id]
	if !ok {
		return fmt.Errorf("watch 0x%x: %w", uint32(id), ErrNoWindow)
	}
	w.watched = true
	// Redirection makes a visible window redraw itself.
	if w.mapped {
		d.damage(w, w.wholeArea())
	}
	return nil
}

func (d *Display) UnwatchWindow(id platform.WindowID) {
	if w, ok := d.windows[id]; ok {
		w.watched = false
		w.damage = region.Set{}
	}
}

// Watched reports whether damage reporting is active for id.
func (d *Display) Watched(id platform.WindowID) bool {
	w, ok := d.windows[id]
	return ok && w.watched
}

func (d *Display) SelectProperties(id platform.WindowID, enable bool) {
	if w, ok := d.windows[id]; ok {
		w.propsWanted = enable
	}
}

func (d *Display) SubtractDamage(id platform.WindowID, parts platform.Region) {
	w, ok := d.windows[id]
	if !ok {
		return
	}
	if parts != platform.None {
		if _, ok := d.region(parts); ok {
			d.regions[parts] = w.damage
		}
	}
	w.damage = region.Set{}
}

func (d *Display) WindowOpacity(id platform.WindowID) (float64, bool) {
	w, ok := d.windows[id]
	if !ok {
		return 0, false
	}
	v, ok := w.props[OpacityProperty]
	if !ok {
		return 0, false
	}
	return float64(v) / float64(math.MaxUint32), true
}

func (d *Display) NameWindowPixmap(id platform.WindowID) (platform.Pixmap, error) {
	w, ok := d.windows[id]
	if !ok || !w.mapped {
		return platform.None, fmt.Errorf("name pixmap 0x%x: %w", uint32(id), ErrNoWindow)
	}
	p := platform.Pixmap(d.alloc())
	d.pixmaps[p] = nil
	return p, nil
}

func (d *Display) FreePixmap(p platform.Pixmap) {
	if _, ok := d.pixmaps[p]; !ok {
		d.badHandles++
		return
	}
	delete(d.pixmaps, p)
}

func (d *Display) CreateWindowPicture(id platform.WindowID, _ platform.Pixmap, _ platform.Visual) (platform.Picture, error) {
	if _, ok := d.windows[id]; !ok {
		return platform.None, fmt.Errorf("picture for 0x%x: %w", uint32(id), ErrNoWindow)
	}
	return d.addPicture(&picture{window: id}), nil
}

func (d *Display) CreateBufferPicture(width, height int) (platform.Picture, error) {
	if d.FailBuffer {
		return platform.None, errors.New("buffer allocation failed")
	}
	return d.addPicture(&picture{img: image.NewRGBA(image.Rect(0, 0, width, height))}), nil
}

func (d *Display) RootPixmap(props []string) (platform.Pixmap, bool) {
	for _, name := range props {
		if v, ok := d.rootProps[name]; ok {
			p := platform.Pixmap(v)
			if _, ok := d.pixmaps[p]; ok {
				return p, true
			}
		}
	}
	return platform.None, false
}

func (d *Display) CreateTilePicture(p platform.Pixmap) (platform.Picture, error) {
	img, ok := d.pixmaps[p]
	if !ok || img == nil {
		return platform.None, fmt.Errorf("pixmap 0x%x is not drawable", uint32(p))
	}
	return d.addPicture(&picture{img: img, repeat: true}), nil
}

func (d *Display) CreateFillPicture(c platform.Color) (platform.Picture, error) {
	fill := color.NRGBA64{R: c.Red, G: c.Green, B: c.Blue, A: c.Alpha}
	return d.addPicture(&picture{solid: image.NewUniform(fill), repeat: true}), nil
}

func (d *Display) CreateAlphaPicture(alpha float64) (platform.Picture, error) {
	a := uint16(math.Round(alpha * 0xffff))
	return d.addPicture(&picture{solid: image.NewUniform(color.Alpha16{A: a}), repeat: true}), nil
}

func (d *Display) addPicture(p *picture) platform.Picture {
	id := platform.Picture(d.alloc())
	d.pictures[id] = p
	return id
}

func (d *Display) FreePicture(p platform.Picture) {
	if _, ok := d.pictures[p]; !ok || p == d.rootPicture {
		d.badHandles++
		return
	}
	delete(d.pictures, p)
}

// LivePictures is the number of pictures allocated besides the root.
func (d *Display) LivePictures() int { return len(d.pictures) - 1 }

// LivePixmaps is the number of named or wallpaper pixmaps alive.
func (d *Display) LivePixmaps() int { return len(d.pixmaps) }

func (d *Display) Composite(op platform.Op, src, mask, dst platform.Picture, x, y, width, height int) {
	s, okSrc := d.pictures[src]
	t, okDst := d.pictures[dst]
	var m *picture
	if mask != platform.None {
		m = d.pictures[mask]
	}
	if !okSrc || !okDst || (mask != platform.None && m == nil) {
		d.badHandles++
		return
	}

	rect := region.Rect{X: x, Y: y, Width: width, Height: height}
	clip := region.New(rect).IntersectRect(region.Rect{Width: t.img.Bounds().Dx(), Height: t.img.Bounds().Dy()})
	if t.clip != nil {
		clip = clip.Intersect(*t.clip)
	}
	d.composites = append(d.composites, CompositeCall{
		Op:        op,
		Src:       src,
		Mask:      mask,
		Dst:       dst,
		Rect:      rect,
		SrcWindow: s.window,
		Clip:      clip,
	})

	srcImg := d.source(s)
	var maskImg image.Image
	if m != nil {
		maskImg = d.source(m)
	}
	drawOp := draw.Src
	if op == platform.OpOver {
		drawOp = draw.Over
	}
	for _, r := range clip.Rects() {
		dr := image.Rect(r.X, r.Y, r.Right(), r.Bottom())
		sp := image.Pt(r.X-x, r.Y-y)
		draw.DrawMask(t.img, dr, srcImg, sp, maskImg, sp, drawOp)
	}
}

// Composites returns every Composite request so far.
func (d *Display) Composites() []CompositeCall { return d.composites }

// RootClips returns every clip set on the root picture, None recorded as
// the whole screen.
func (d *Display) RootClips() []region.Set { return d.rootClips }

// ResetLog forgets recorded composites and root clips.
func (d *Display) ResetLog() {
	d.composites = nil
	d.rootClips = nil
}

// Registrar

func (d *Display) Register(name string) error {
	if d.owner != "" && d.ownerID != d.root {
		return &platform.AlreadyRunningError{Owner: d.ownerID, Name: d.owner}
	}
	d.owner = name
	d.ownerID = d.root
	return nil
}

func (d *Display) CurrentOwner() (platform.WindowID, string, bool) {
	if d.owner == "" {
		return platform.None, "", false
	}
	return d.ownerID, d.owner, true
}

// EventSource

// NextEvent pops the oldest queued event. An empty queue reports
// platform.ErrClosed, since nothing could ever arrive.
func (d *Display) NextEvent() (platform.Event, error) {
	if len(d.queue) == 0 {
		return nil, platform.ErrClosed
	}
	ev := d.queue[0]
	d.queue = d.queue[1:]
	return ev, nil
}

func (d *Display) Pending() bool { return len(d.queue) > 0 }

// Queued returns the events not yet delivered.
func (d *Display) Queued() []platform.Event { return slices.Clone(d.queue) }

// Screen returns a copy of the visible screen.
func (d *Display) Screen() *image.RGBA {
	src := d.pictures[d.rootPicture].img
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, image.Point{}, draw.Src)
	return out
}

// PixelAt returns the visible color at x, y.
func (d *Display) PixelAt(x, y int) color.RGBA {
	return d.pictures[d.rootPicture].img.RGBAAt(x, y)
}
