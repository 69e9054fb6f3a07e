//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/xcomp/internal/region"
	"github.com/1broseidon/xcomp/internal/x11"
)

// LinuxBackend wraps an X11 connection behind the platform interfaces.
type LinuxBackend struct {
	conn            *x11.Connection
	logger          *slog.Logger
	rootPicture     Picture
	opacityProperty string
	closeOnce       sync.Once
}

var (
	_ Backend     = (*LinuxBackend)(nil)
	_ EventSource = (*LinuxBackend)(nil)
	_ Registrar   = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a backend on an existing connection. opacityProperty
// names the window property read by WindowOpacity.
func NewLinuxBackend(conn *x11.Connection, opacityProperty string, logger *slog.Logger) (*LinuxBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root, err := conn.CreateRootPicture()
	if err != nil {
		return nil, fmt.Errorf("root picture: %w", err)
	}
	return &LinuxBackend{
		conn:            conn,
		logger:          logger,
		rootPicture:     Picture(root),
		opacityProperty: opacityProperty,
	}, nil
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection to display.
func NewLinuxBackendFromDisplay(display, opacityProperty string, logger *slog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	b, err := NewLinuxBackend(conn, opacityProperty, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// Connection exposes the underlying X11 connection.
func (b *LinuxBackend) Connection() *x11.Connection { return b.conn }

// Disconnect closes the underlying X11 connection. It may be called from
// another goroutine to stop a blocked NextEvent, and more than once.
func (b *LinuxBackend) Disconnect() {
	if b == nil || b.conn == nil {
		return
	}
	b.closeOnce.Do(b.conn.Close)
}

// Regions

func (b *LinuxBackend) CreateRegion(rects []region.Rect) Region {
	xrects := make([]xproto.Rectangle, 0, len(rects))
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		xrects = append(xrects, xproto.Rectangle{
			X:      int16(r.X),
			Y:      int16(r.Y),
			Width:  uint16(r.Width),
			Height: uint16(r.Height),
		})
	}
	return Region(b.conn.CreateRegion(xrects))
}

func (b *LinuxBackend) CreateWindowRegion(w WindowID) Region {
	return Region(b.conn.CreateWindowRegion(xproto.Window(w)))
}

func (b *LinuxBackend) UnionRegion(dst, a, c Region) {
	b.conn.UnionRegion(xfixes.Region(dst), xfixes.Region(a), xfixes.Region(c))
}

func (b *LinuxBackend) SubtractRegion(dst, a, c Region) {
	b.conn.SubtractRegion(xfixes.Region(dst), xfixes.Region(a), xfixes.Region(c))
}

func (b *LinuxBackend) IntersectRegion(dst, a, c Region) {
	b.conn.IntersectRegion(xfixes.Region(dst), xfixes.Region(a), xfixes.Region(c))
}

func (b *LinuxBackend) TranslateRegion(r Region, dx, dy int) {
	b.conn.TranslateRegion(xfixes.Region(r), dx, dy)
}

func (b *LinuxBackend) CopyRegion(dst, src Region) {
	b.conn.CopyRegion(xfixes.Region(dst), xfixes.Region(src))
}

func (b *LinuxBackend) DestroyRegion(r Region) {
	b.conn.DestroyRegion(xfixes.Region(r))
}

func (b *LinuxBackend) SetPictureClip(p Picture, r Region) {
	b.conn.SetPictureClip(render.Picture(p), xfixes.Region(r))
}

// Backend

func (b *LinuxBackend) RootWindow() WindowID { return WindowID(b.conn.Root) }

func (b *LinuxBackend) ScreenSize() (int, int) { return b.conn.Width, b.conn.Height }

func (b *LinuxBackend) RootPicture() Picture { return b.rootPicture }

func (b *LinuxBackend) RedirectSubwindows() error { return b.conn.RedirectSubwindows() }

func (b *LinuxBackend) SelectRootInput() error { return b.conn.SelectRootInput() }

func (b *LinuxBackend) GrabServer() { b.conn.GrabServer() }

func (b *LinuxBackend) UngrabServer() { b.conn.UngrabServer() }

func (b *LinuxBackend) Sync() { b.conn.Sync() }

func (b *LinuxBackend) Children() ([]WindowID, error) {
	children, err := b.conn.Children()
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, len(children))
	for i, w := range children {
		ids[i] = WindowID(w)
	}
	return ids, nil
}

func (b *LinuxBackend) WindowAttributes(w WindowID) (Attributes, error) {
	info, err := b.conn.WindowInfo(xproto.Window(w))
	if err != nil {
		return Attributes{}, err
	}
	attrs := Attributes{
		X:                info.X,
		Y:                info.Y,
		Width:            info.Width,
		Height:           info.Height,
		BorderWidth:      info.BorderWidth,
		Mapped:           info.Viewable,
		InputOnly:        info.InputOnly,
		OverrideRedirect: info.OverrideRedirect,
		Visual:           Visual(info.Visual),
	}
	if info.Format != nil {
		attrs.Format = &PixelFormat{
			Direct:    info.Format.Type == render.PictTypeDirect,
			AlphaMask: info.Format.Direct.AlphaMask,
		}
	}
	return attrs, nil
}

func (b *LinuxBackend) WatchWindow(w WindowID) error { return b.conn.Watch(xproto.Window(w)) }

func (b *LinuxBackend) UnwatchWindow(w WindowID) { b.conn.Unwatch(xproto.Window(w)) }

func (b *LinuxBackend) SelectProperties(w WindowID, enable bool) {
	b.conn.SelectProperties(xproto.Window(w), enable)
}

func (b *LinuxBackend) SubtractDamage(w WindowID, parts Region) {
	b.conn.SubtractDamage(xproto.Window(w), xfixes.Region(parts))
}

// WindowOpacity reads the opacity property, a cardinal scaled so that
// 0xffffffff is fully opaque.
func (b *LinuxBackend) WindowOpacity(w WindowID) (float64, bool) {
	if b.opacityProperty == "" {
		return 0, false
	}
	v, ok := b.conn.CardinalProperty(xproto.Window(w), b.opacityProperty)
	if !ok {
		return 0, false
	}
	return float64(v) / math.MaxUint32, true
}

func (b *LinuxBackend) NameWindowPixmap(w WindowID) (Pixmap, error) {
	p, err := b.conn.NameWindowPixmap(xproto.Window(w))
	return Pixmap(p), err
}

func (b *LinuxBackend) FreePixmap(p Pixmap) { b.conn.FreePixmap(xproto.Pixmap(p)) }

func (b *LinuxBackend) CreateWindowPicture(w WindowID, p Pixmap, visual Visual) (Picture, error) {
	drawable := xproto.Drawable(w)
	if p != None {
		drawable = xproto.Drawable(p)
	}
	pic, err := b.conn.CreateDrawablePicture(drawable, xproto.Visualid(visual), true)
	return Picture(pic), err
}

func (b *LinuxBackend) CreateBufferPicture(width, height int) (Picture, error) {
	pic, err := b.conn.CreateBufferPicture(width, height)
	return Picture(pic), err
}

func (b *LinuxBackend) RootPixmap(props []string) (Pixmap, bool) {
	p, ok := b.conn.RootPixmap(props)
	return Pixmap(p), ok
}

func (b *LinuxBackend) CreateTilePicture(p Pixmap) (Picture, error) {
	pic, err := b.conn.CreateTilePicture(xproto.Pixmap(p))
	return Picture(pic), err
}

func (b *LinuxBackend) CreateFillPicture(c Color) (Picture, error) {
	pic, err := b.conn.CreateSolidPicture(render.Color{
		Red:   c.Red,
		Green: c.Green,
		Blue:  c.Blue,
		Alpha: c.Alpha,
	}, false)
	return Picture(pic), err
}

func (b *LinuxBackend) CreateAlphaPicture(alpha float64) (Picture, error) {
	a := uint16(math.Round(math.Max(0, math.Min(1, alpha)) * 0xffff))
	pic, err := b.conn.CreateSolidPicture(render.Color{Alpha: a}, true)
	return Picture(pic), err
}

func (b *LinuxBackend) FreePicture(p Picture) { b.conn.FreePicture(render.Picture(p)) }

func (b *LinuxBackend) Composite(op Op, src, mask, dst Picture, x, y, width, height int) {
	xop := byte(render.PictOpSrc)
	if op == OpOver {
		xop = render.PictOpOver
	}
	b.conn.Composite(xop, render.Picture(src), render.Picture(mask), render.Picture(dst), x, y, width, height)
}

// Registrar

// Register claims the compositing manager selection under name.
func (b *LinuxBackend) Register(name string) error {
	if owner, current, ok := b.CurrentOwner(); ok {
		return &AlreadyRunningError{Owner: owner, Name: current}
	}
	w, err := b.conn.AcquireSelection(name)
	if err != nil {
		return err
	}
	b.logger.Debug("compositing manager selection acquired", "window", fmt.Sprintf("0x%x", uint32(w)))
	return nil
}

func (b *LinuxBackend) CurrentOwner() (WindowID, string, bool) {
	owner, err := b.conn.SelectionOwner()
	if err != nil || owner == xproto.WindowNone {
		return None, "", false
	}
	return WindowID(owner), b.conn.WindowName(owner), true
}

// EventSource

// NextEvent blocks for the next event the compositor understands. Protocol
// errors from asynchronous requests, typically on windows destroyed in the
// meantime, are logged and skipped.
func (b *LinuxBackend) NextEvent() (Event, error) {
	for {
		ev, xerr, err := b.conn.NextEvent()
		if err != nil {
			return nil, ErrClosed
		}
		if xerr != nil {
			b.logger.Debug("x11 protocol error", "error", xerr)
			continue
		}
		if e := b.translate(ev); e != nil {
			return e, nil
		}
	}
}

func (b *LinuxBackend) Pending() bool { return b.conn.Pending() }

func (b *LinuxBackend) translate(ev any) Event {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		return CreateEvent{Window: WindowID(e.Window)}
	case xproto.ConfigureNotifyEvent:
		if e.Window == b.conn.Root {
			b.conn.Width, b.conn.Height = int(e.Width), int(e.Height)
		}
		return ConfigureEvent{
			Window:           WindowID(e.Window),
			Above:            WindowID(e.AboveSibling),
			X:                int(e.X),
			Y:                int(e.Y),
			Width:            int(e.Width),
			Height:           int(e.Height),
			BorderWidth:      int(e.BorderWidth),
			OverrideRedirect: e.OverrideRedirect,
		}
	case xproto.DestroyNotifyEvent:
		return DestroyEvent{Window: WindowID(e.Window)}
	case xproto.MapNotifyEvent:
		return MapEvent{Window: WindowID(e.Window)}
	case xproto.UnmapNotifyEvent:
		return UnmapEvent{Window: WindowID(e.Window)}
	case xproto.ReparentNotifyEvent:
		return ReparentEvent{Window: WindowID(e.Window), Parent: WindowID(e.Parent)}
	case xproto.CirculateNotifyEvent:
		place := PlaceOnBottom
		if e.Place == xproto.PlaceOnTop {
			place = PlaceOnTop
		}
		return CirculateEvent{Window: WindowID(e.Window), Place: place}
	case xproto.ExposeEvent:
		return ExposeEvent{
			Window: WindowID(e.Window),
			Rect:   region.Rect{X: int(e.X), Y: int(e.Y), Width: int(e.Width), Height: int(e.Height)},
			Count:  int(e.Count),
		}
	case xproto.PropertyNotifyEvent:
		return PropertyEvent{Window: WindowID(e.Window), Name: b.conn.AtomName(e.Atom)}
	case damage.NotifyEvent:
		w, ok := b.conn.WatchedWindow(e.Damage)
		if !ok {
			w = xproto.Window(e.Drawable)
		}
		return DamageEvent{
			Window: WindowID(w),
			Area:   region.Rect{X: int(e.Area.X), Y: int(e.Area.Y), Width: int(e.Area.Width), Height: int(e.Area.Height)},
		}
	case shape.NotifyEvent:
		kind := ShapeInput
		switch e.ShapeKind {
		case shape.SkBounding:
			kind = ShapeBounding
		case shape.SkClip:
			kind = ShapeClip
		}
		return ShapeEvent{
			Window: WindowID(e.AffectedWindow),
			Kind:   kind,
			Bounds: region.Rect{
				X:      int(e.ExtentsX),
				Y:      int(e.ExtentsY),
				Width:  int(e.ExtentsWidth),
				Height: int(e.ExtentsHeight),
			},
			Shaped: e.Shaped,
		}
	}
	return nil
}
