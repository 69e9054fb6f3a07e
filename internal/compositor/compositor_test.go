package compositor

import (
	"context"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/1broseidon/xcomp/internal/headless"
	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

var (
	red   = color.NRGBA{R: 0xff, A: 0xff}
	green = color.NRGBA{G: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
	gray  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

func newTestCompositor(t *testing.T, d *headless.Display, opts Options) *Compositor {
	t.Helper()
	if opts.OpacityProperty == "" {
		opts.OpacityProperty = headless.OpacityProperty
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(d, opts)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return c
}

// drain handles every queued event the way the main loop does.
func drain(t *testing.T, c *Compositor, d *headless.Display) {
	t.Helper()
	if err := c.Run(context.Background(), d); !errors.Is(err, platform.ErrClosed) {
		t.Fatalf("expected the loop to stop on an empty queue, got %v", err)
	}
}

func handleQueued(c *Compositor, d *headless.Display) {
	for d.Pending() {
		ev, _ := d.NextEvent()
		c.Handle(ev)
	}
}

func pendingDamage(c *Compositor, d *headless.Display) region.Set {
	if c.damage.pending == platform.None {
		return region.Set{}
	}
	return region.New(d.RegionRects(c.damage.pending)...)
}

func rgba(c color.NRGBA) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func assertPixel(t *testing.T, d *headless.Display, x, y int, want color.RGBA) {
	t.Helper()
	if got := d.PixelAt(x, y); got != want {
		t.Fatalf("pixel (%d,%d): expected %v, got %v", x, y, want, got)
	}
}

func assertNoLeaks(t *testing.T, d *headless.Display) {
	t.Helper()
	if d.BadHandles() != 0 {
		t.Fatalf("expected no stale handle use, got %d", d.BadHandles())
	}
}

func TestStartAdoptsExistingWindowsInStackingOrder(t *testing.T) {
	d := headless.New(100, 100)
	bottom := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	middle := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10})
	top := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})

	c := newTestCompositor(t, d, Options{})

	if got := c.Windows().IDs(); !slices.Equal(got, []platform.WindowID{top, middle, bottom}) {
		t.Fatalf("expected topmost-first order [%d %d %d], got %v", top, middle, bottom, got)
	}
	if d.Grabbed() {
		t.Fatalf("expected the server grab to be released")
	}
	if c.Frames() != 1 {
		t.Fatalf("expected one initial full paint, got %d", c.Frames())
	}
	if c.Windows().Find(middle).Mapped {
		t.Fatalf("expected the unmapped window to stay unmapped")
	}
	if !d.Watched(middle) {
		t.Fatalf("expected damage reporting on every drawable window")
	}
}

func TestRunCoalescesABatchIntoOnePaint(t *testing.T) {
	d := headless.New(100, 100)
	w := d.CreateWindow(headless.WindowOptions{Width: 50, Height: 50, Color: red, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	frames := c.Frames()
	d.Draw(w, region.Rect{Width: 5, Height: 5}, green)
	d.Draw(w, region.Rect{X: 10, Y: 10, Width: 5, Height: 5}, green)
	d.Draw(w, region.Rect{X: 20, Y: 20, Width: 5, Height: 5}, green)
	drain(t, c, d)

	if got := c.Frames() - frames; got != 1 {
		t.Fatalf("expected one paint for the batch, got %d", got)
	}
	if c.Damage().Pending() || c.Damage().GeometryDirty() {
		t.Fatalf("expected accumulator reset after flush")
	}
	assertPixel(t, d, 12, 12, rgba(green))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	d := headless.New(10, 10)
	c := newTestCompositor(t, d, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx, d); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFlushWithoutDamageDoesNotPaint(t *testing.T) {
	d := headless.New(10, 10)
	c := newTestCompositor(t, d, Options{})

	frames := c.Frames()
	if c.Flush() {
		t.Fatalf("expected no paint without damage")
	}
	if c.Frames() != frames {
		t.Fatalf("expected frame count to stay at %d, got %d", frames, c.Frames())
	}
}

func TestFirstDamageCoversWholeWindow(t *testing.T) {
	d := headless.New(100, 100)
	w := d.CreateWindow(headless.WindowOptions{X: 10, Y: 10, Width: 20, Height: 20, BorderWidth: 2, Color: red, Mapped: true})
	c := newTestCompositor(t, d, Options{})

	handleQueued(c, d)

	want := region.New(region.Rect{X: 10, Y: 10, Width: 24, Height: 24})
	if got := pendingDamage(c, d); !got.Equal(want) {
		t.Fatalf("expected first damage %v, got %v", want, got)
	}
	if !c.Windows().Find(w).Damaged {
		t.Fatalf("expected the window to be marked damaged")
	}

	c.Flush()
	assertPixel(t, d, 10, 10, rgba(red))
	assertPixel(t, d, 33, 33, rgba(red))
	assertPixel(t, d, 34, 34, gray)
}

func TestLaterDamageIsTranslatedToScreen(t *testing.T) {
	d := headless.New(100, 100)
	w := d.CreateWindow(headless.WindowOptions{X: 10, Y: 20, Width: 30, Height: 30, BorderWidth: 1, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.Draw(w, region.Rect{X: 2, Y: 3, Width: 4, Height: 5}, green)
	handleQueued(c, d)

	want := region.New(region.Rect{X: 13, Y: 24, Width: 4, Height: 5})
	if got := pendingDamage(c, d); !got.Equal(want) {
		t.Fatalf("expected damage %v, got %v", want, got)
	}
}

func TestUnmapDamagesFormerExtents(t *testing.T) {
	d := headless.New(100, 100)
	d.CreateWindow(headless.WindowOptions{Width: 100, Height: 100, Color: blue, Mapped: true})
	top := d.CreateWindow(headless.WindowOptions{X: 20, Y: 20, Width: 30, Height: 30, Color: red, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)
	assertPixel(t, d, 30, 30, rgba(red))

	d.UnmapWindow(top)
	handleQueued(c, d)

	want := region.New(region.Rect{X: 20, Y: 20, Width: 30, Height: 30})
	if got := pendingDamage(c, d); !got.Equal(want) {
		t.Fatalf("expected unmap damage %v, got %v", want, got)
	}
	if w := c.Windows().Find(top); w == nil || w.Mapped {
		t.Fatalf("expected the record to survive unmapped")
	}

	c.Flush()
	assertPixel(t, d, 30, 30, rgba(blue))
	assertNoLeaks(t, d)
}

func TestConfigureDamagesOldAndNewExtents(t *testing.T) {
	d := headless.New(100, 100)
	w := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Color: red, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.ConfigureWindow(w, region.Rect{X: 50, Y: 50, Width: 10, Height: 10}, 0)
	handleQueued(c, d)

	want := region.New(
		region.Rect{Width: 10, Height: 10},
		region.Rect{X: 50, Y: 50, Width: 10, Height: 10},
	)
	if got := pendingDamage(c, d); !got.Equal(want) {
		t.Fatalf("expected damage %v, got %v", want, got)
	}
	if !c.Damage().GeometryDirty() {
		t.Fatalf("expected geometry to be dirty after a move")
	}

	c.Flush()
	assertPixel(t, d, 5, 5, gray)
	assertPixel(t, d, 55, 55, rgba(red))
	assertNoLeaks(t, d)
}

func TestResizeReleasesWindowContents(t *testing.T) {
	d := headless.New(100, 100)
	id := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	w := c.Windows().Find(id)
	if w.picture == platform.None {
		t.Fatalf("expected a window picture after the first paint")
	}
	d.ConfigureWindow(id, region.Rect{Width: 20, Height: 10}, 0)
	handleQueued(c, d)
	if w.picture != platform.None || w.pixmap != platform.None {
		t.Fatalf("expected resize to release the window contents")
	}

	d.ConfigureWindow(id, region.Rect{X: 5, Width: 20, Height: 10}, 0)
	c.Flush()
	old := w.picture
	handleQueued(c, d)
	if w.picture != old {
		t.Fatalf("expected a pure move to keep the window contents")
	}
}

func TestRestackAboveUnknownSiblingPlacesOnTop(t *testing.T) {
	d := headless.New(100, 100)
	a := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	b := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.RestackAbove(a, 0xdead)
	drain(t, c, d)

	if got := c.Windows().IDs(); !slices.Equal(got, []platform.WindowID{a, b}) {
		t.Fatalf("expected [%d %d], got %v", a, b, got)
	}
	assertNoLeaks(t, d)
}

func TestRestackAboveUnknownSiblingCanDropWindow(t *testing.T) {
	d := headless.New(100, 100)
	a := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	b := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	c := newTestCompositor(t, d, Options{DropOnMissingTarget: true})
	drain(t, c, d)

	d.RestackAbove(a, 0xdead)
	drain(t, c, d)

	if got := c.Windows().IDs(); !slices.Equal(got, []platform.WindowID{b}) {
		t.Fatalf("expected only [%d], got %v", b, got)
	}
	if d.Watched(a) {
		t.Fatalf("expected the dropped window to stop reporting damage")
	}
	assertNoLeaks(t, d)
}

func TestRestackBetweenSiblings(t *testing.T) {
	d := headless.New(100, 100)
	a := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	b := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	top := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.RaiseWindow(a)
	drain(t, c, d)
	if got := c.Windows().IDs(); !slices.Equal(got, []platform.WindowID{a, top, b}) {
		t.Fatalf("expected [%d %d %d], got %v", a, top, b, got)
	}

	// Above = None: bottom of the stack.
	d.RestackAbove(top, platform.None)
	drain(t, c, d)
	if got := c.Windows().IDs(); !slices.Equal(got, []platform.WindowID{a, b, top}) {
		t.Fatalf("expected [%d %d %d], got %v", a, b, top, got)
	}
}

func TestCirculate(t *testing.T) {
	d := headless.New(100, 100)
	a := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	b := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.CirculateWindow(b, platform.PlaceOnBottom)
	handleQueued(c, d)
	if got := c.Windows().IDs(); !slices.Equal(got, []platform.WindowID{a, b}) {
		t.Fatalf("expected [%d %d] after lowering, got %v", a, b, got)
	}

	d.CirculateWindow(b, platform.PlaceOnTop)
	handleQueued(c, d)
	if got := c.Windows().IDs(); !slices.Equal(got, []platform.WindowID{b, a}) {
		t.Fatalf("expected [%d %d] after raising, got %v", b, a, got)
	}
	if !c.Damage().GeometryDirty() {
		t.Fatalf("expected circulate to mark geometry dirty")
	}
}

func TestReparentAwayAndBack(t *testing.T) {
	d := headless.New(100, 100)
	w := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	c.Handle(platform.ReparentEvent{Window: w, Parent: 0xbeef})
	if c.Windows().Find(w) != nil {
		t.Fatalf("expected the window to be forgotten once reparented away")
	}

	c.Handle(platform.ReparentEvent{Window: w, Parent: d.RootWindow()})
	if got := c.Windows().Find(w); got == nil || !got.Mapped {
		t.Fatalf("expected the window to be tracked and mapped again")
	}
	if c.Windows().At(0).ID != w {
		t.Fatalf("expected the reparented window on top")
	}
}

func TestRootExposeSeriesIsAccumulated(t *testing.T) {
	d := headless.New(100, 100)
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.Expose(region.Rect{Width: 10, Height: 10}, region.Rect{X: 50, Y: 50, Width: 10, Height: 10})

	ev, _ := d.NextEvent()
	c.Handle(ev)
	if c.Damage().Pending() {
		t.Fatalf("expected no damage before the series ends")
	}
	ev, _ = d.NextEvent()
	c.Handle(ev)

	want := region.New(
		region.Rect{Width: 10, Height: 10},
		region.Rect{X: 50, Y: 50, Width: 10, Height: 10},
	)
	if got := pendingDamage(c, d); !got.Equal(want) {
		t.Fatalf("expected expose damage %v, got %v", want, got)
	}
}

func TestScreenResize(t *testing.T) {
	d := headless.New(100, 100)
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.ResizeScreen(200, 150)
	d.ResetLog()
	drain(t, c, d)

	if w, h := c.ScreenSize(); w != 200 || h != 150 {
		t.Fatalf("expected 200x150, got %dx%d", w, h)
	}
	clips := d.RootClips()
	if len(clips) == 0 {
		t.Fatalf("expected a repaint after the resize")
	}
	want := region.New(region.Rect{Width: 200, Height: 150})
	if !clips[0].Equal(want) {
		t.Fatalf("expected the whole new screen repainted, got %v", clips[0])
	}
	assertPixel(t, d, 199, 149, gray)
	assertNoLeaks(t, d)
}

func TestWallpaperChangeRepaintsBackground(t *testing.T) {
	d := headless.New(50, 50)
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)
	assertPixel(t, d, 10, 10, gray)

	d.SetWallpaper(green)
	drain(t, c, d)
	assertPixel(t, d, 10, 10, rgba(green))
}

func TestOpacityPropertyReclassifiesWindow(t *testing.T) {
	d := headless.New(100, 100)
	id := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Color: red, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	w := c.Windows().Find(id)
	if w.Mode != Opaque {
		t.Fatalf("expected opaque, got %v", w.Mode)
	}

	d.SetOpacity(id, 0.5)
	drain(t, c, d)
	if w.Mode != Translucent || w.alphaMask == platform.None {
		t.Fatalf("expected translucent with a mask, got %v", w.Mode)
	}

	d.SetOpacity(id, 1)
	drain(t, c, d)
	if w.Mode != Opaque || w.alphaMask != platform.None {
		t.Fatalf("expected opaque without a mask, got %v", w.Mode)
	}
}

func TestOpacityIgnoredWhenDisabled(t *testing.T) {
	d := headless.New(100, 100)
	id := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10})
	d.SetOpacity(id, 0.25)
	d.MapWindow(id)

	c := New(d, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	drain(t, c, d)

	if w := c.Windows().Find(id); w.Opacity != 1 || w.Mode != Opaque {
		t.Fatalf("expected opacity tracking off, got %v at %v", w.Mode, w.Opacity)
	}
}

func TestSetOpacityClamps(t *testing.T) {
	d := headless.New(100, 100)
	id := d.CreateWindow(headless.WindowOptions{Width: 10, Height: 10, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	c.SetOpacity(id, -3)
	if w := c.Windows().Find(id); w.Opacity != 0 || w.Mode != Translucent {
		t.Fatalf("expected clamp to 0 and translucent, got %v at %v", w.Mode, w.Opacity)
	}
	c.SetOpacity(id, 7)
	if w := c.Windows().Find(id); w.Opacity != 1 || w.Mode != Opaque {
		t.Fatalf("expected clamp to 1 and opaque, got %v at %v", w.Mode, w.Opacity)
	}
}

func TestInputOnlyWindowsAreNeverDrawn(t *testing.T) {
	d := headless.New(100, 100)
	id := d.CreateWindow(headless.WindowOptions{Width: 50, Height: 50, InputOnly: true, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	if c.Windows().Find(id) == nil {
		t.Fatalf("expected input-only window to be tracked")
	}
	if d.Watched(id) {
		t.Fatalf("expected no damage reporting for an input-only window")
	}
	for _, call := range d.Composites() {
		if call.SrcWindow == id {
			t.Fatalf("expected input-only window never to be composited")
		}
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	d := headless.New(100, 100)
	a := d.CreateWindow(headless.WindowOptions{Width: 40, Height: 40, Color: red, Mapped: true})
	b := d.CreateWindow(headless.WindowOptions{X: 20, Y: 20, Width: 40, Height: 40, Color: blue, Mapped: true})
	d.SetOpacity(b, 0.5)
	argb := d.CreateWindow(headless.WindowOptions{X: 60, Y: 60, Width: 20, Height: 20, ARGB: true, Mapped: true})
	c := newTestCompositor(t, d, Options{})
	drain(t, c, d)

	d.ConfigureWindow(a, region.Rect{X: 5, Y: 5, Width: 30, Height: 30}, 2)
	shape := region.Rect{Width: 10, Height: 10}
	d.ShapeWindow(b, &shape)
	d.UnmapWindow(argb)
	d.MapWindow(argb)
	drain(t, c, d)

	d.DestroyWindow(a)
	d.DestroyWindow(b)
	d.DestroyWindow(argb)
	drain(t, c, d)

	if c.Windows().Len() != 0 {
		t.Fatalf("expected an empty registry, got %v", c.Windows().IDs())
	}
	if d.LiveRegions() != 0 {
		t.Fatalf("expected every region released, %d still live", d.LiveRegions())
	}
	if d.LivePixmaps() != 0 {
		t.Fatalf("expected every window pixmap released, %d still live", d.LivePixmaps())
	}
	// The frame buffer and the background stay.
	if d.LivePictures() != 2 {
		t.Fatalf("expected 2 shared pictures left, got %d", d.LivePictures())
	}
	assertNoLeaks(t, d)
	assertPixel(t, d, 30, 30, gray)
}
