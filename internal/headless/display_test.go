package headless

import (
	"errors"
	"image/color"
	"testing"

	"github.com/1broseidon/xcomp/internal/platform"
	"github.com/1broseidon/xcomp/internal/region"
)

func TestRegionAccounting(t *testing.T) {
	d := New(100, 100)

	a := d.CreateRegion([]region.Rect{{Width: 10, Height: 10}})
	b := d.CreateRegion([]region.Rect{{X: 5, Y: 5, Width: 10, Height: 10}})
	d.UnionRegion(a, a, b)
	d.DestroyRegion(b)

	if got := region.New(d.RegionRects(a)...).Area(); got != 175 {
		t.Fatalf("expected union area 175, got %d", got)
	}
	if d.LiveRegions() != 1 {
		t.Fatalf("expected 1 live region, got %d", d.LiveRegions())
	}

	d.DestroyRegion(a)
	d.DestroyRegion(a)
	if d.BadHandles() != 1 {
		t.Fatalf("expected double destroy to be counted, got %d", d.BadHandles())
	}
	if d.RegionsCreated() != 2 || d.RegionsDestroyed() != 2 {
		t.Fatalf("expected 2 created and 2 destroyed, got %d and %d", d.RegionsCreated(), d.RegionsDestroyed())
	}
}

func TestCompositeHonoursClip(t *testing.T) {
	d := New(20, 20)
	fill, err := d.CreateFillPicture(platform.Color{Red: 0xffff, Alpha: 0xffff})
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	clip := d.CreateRegion([]region.Rect{{X: 0, Y: 0, Width: 5, Height: 20}})
	d.SetPictureClip(d.RootPicture(), clip)
	d.DestroyRegion(clip)
	d.Composite(platform.OpSrc, fill, platform.None, d.RootPicture(), 0, 0, 20, 20)

	if got := d.PixelAt(2, 2); got.R != 0xff {
		t.Fatalf("expected red inside clip, got %v", got)
	}
	if got := d.PixelAt(10, 2); got.R != 0 {
		t.Fatalf("expected untouched pixel outside clip, got %v", got)
	}
	calls := d.Composites()
	if len(calls) != 1 || calls[0].Pixels() != 100 {
		t.Fatalf("expected one call touching 100 pixels, got %+v", calls)
	}
}

func TestCompositeOverWithAlphaMask(t *testing.T) {
	d := New(4, 4)
	base, _ := d.CreateFillPicture(platform.Color{Blue: 0xffff, Alpha: 0xffff})
	d.Composite(platform.OpSrc, base, platform.None, d.RootPicture(), 0, 0, 4, 4)

	w := d.CreateWindow(WindowOptions{Width: 4, Height: 4, Color: color.NRGBA{R: 0xff, A: 0xff}})
	src, err := d.CreateWindowPicture(w, platform.None, VisualRGB)
	if err != nil {
		t.Fatalf("window picture: %v", err)
	}
	mask, _ := d.CreateAlphaPicture(0.5)
	d.Composite(platform.OpOver, src, mask, d.RootPicture(), 0, 0, 4, 4)

	got := d.PixelAt(1, 1)
	if got.R < 0x7e || got.R > 0x81 || got.B < 0x7e || got.B > 0x81 {
		t.Fatalf("expected half red over blue, got %v", got)
	}
}

func TestWatchOfMappedWindowQueuesDamage(t *testing.T) {
	d := New(50, 50)
	w := d.CreateWindow(WindowOptions{X: 5, Y: 5, Width: 10, Height: 10, BorderWidth: 1, Mapped: true})

	if err := d.WatchWindow(w); err != nil {
		t.Fatalf("watch: %v", err)
	}
	queued := d.Queued()
	last, ok := queued[len(queued)-1].(platform.DamageEvent)
	if !ok {
		t.Fatalf("expected trailing damage event, got %#v", queued)
	}
	want := region.Rect{X: -1, Y: -1, Width: 12, Height: 12}
	if last.Area != want {
		t.Fatalf("expected damage %v, got %v", want, last.Area)
	}

	parts := d.CreateRegion(nil)
	d.SubtractDamage(w, parts)
	if got := region.New(d.RegionRects(parts)...); !got.Equal(region.New(want)) {
		t.Fatalf("expected acknowledged damage %v, got %v", want, got)
	}
}

func TestRegisterRejectsSecondCompositor(t *testing.T) {
	d := New(10, 10)
	d.ClaimOwnership(0x400001, "picom")

	err := d.Register("xcomp")
	var running *platform.AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("expected AlreadyRunningError, got %v", err)
	}
	if running.Name != "picom" {
		t.Fatalf("expected owner name picom, got %q", running.Name)
	}
}

func TestNextEventOnEmptyQueue(t *testing.T) {
	d := New(10, 10)
	if d.Pending() {
		t.Fatalf("expected no pending events")
	}
	if _, err := d.NextEvent(); !errors.Is(err, platform.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
