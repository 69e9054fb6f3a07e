package platform

import (
	"fmt"

	"github.com/1broseidon/xcomp/internal/region"
)

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Region is a server-side rectangle-set handle. None means no region.
type Region uint32

// Picture is a renderable source or destination handle.
type Picture uint32

// Pixmap is an off-screen pixel surface handle.
type Pixmap uint32

// Visual identifies a window's visual (pixel layout).
type Visual uint32

// None is the null value shared by every handle type.
const None = 0

// Op selects the compositing operator.
type Op int

const (
	// OpSrc overwrites the destination with the source.
	OpSrc Op = iota
	// OpOver blends the source over the destination using source alpha
	// multiplied by the optional mask.
	OpOver
)

func (o Op) String() string {
	switch o {
	case OpSrc:
		return "src"
	case OpOver:
		return "over"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Color is a 16-bit-per-channel, non-premultiplied color.
type Color struct {
	Red   uint16
	Green uint16
	Blue  uint16
	Alpha uint16
}

// PixelFormat describes the pixel layout behind a window's visual.
type PixelFormat struct {
	Direct    bool
	AlphaMask uint16
}

// HasAlpha reports whether pixels carry their own alpha channel.
func (f PixelFormat) HasAlpha() bool {
	return f.Direct && f.AlphaMask != 0
}

// Attributes is a snapshot of a window's protocol state.
type Attributes struct {
	X                int
	Y                int
	Width            int
	Height           int
	BorderWidth      int
	Mapped           bool
	InputOnly        bool
	OverrideRedirect bool
	Visual           Visual
	// Format is nil when the visual has no render format.
	Format *PixelFormat
}

// Regions is the rectangle-set algebra the compositor needs. Destination
// handles are overwritten in place; a destroyed handle must never be used
// again.
type Regions interface {
	CreateRegion(rects []region.Rect) Region
	// CreateWindowRegion returns the window's bounding shape relative to the
	// window origin (inside the border).
	CreateWindowRegion(w WindowID) Region
	UnionRegion(dst, a, b Region)
	SubtractRegion(dst, a, b Region)
	IntersectRegion(dst, a, b Region)
	TranslateRegion(r Region, dx, dy int)
	CopyRegion(dst, src Region)
	DestroyRegion(r Region)
	// SetPictureClip clips all drawing to p by a copy of r. None removes the
	// clip.
	SetPictureClip(p Picture, r Region)
}

// Backend abstracts the window-system and render operations the compositor
// drives.
type Backend interface {
	Regions

	RootWindow() WindowID
	ScreenSize() (width, height int)
	RootPicture() Picture
	RedirectSubwindows() error
	SelectRootInput() error
	GrabServer()
	UngrabServer()
	// Children lists the root's children bottom-to-top.
	Children() ([]WindowID, error)
	Sync()

	WindowAttributes(w WindowID) (Attributes, error)
	// WatchWindow starts damage and shape reporting for w.
	WatchWindow(w WindowID) error
	UnwatchWindow(w WindowID)
	SelectProperties(w WindowID, enable bool)
	// SubtractDamage acknowledges pending damage on w, storing it in parts
	// (window-relative) unless parts is None.
	SubtractDamage(w WindowID, parts Region)
	// WindowOpacity returns the window's opacity property in [0, 1].
	WindowOpacity(w WindowID) (float64, bool)

	NameWindowPixmap(w WindowID) (Pixmap, error)
	FreePixmap(p Pixmap)
	// CreateWindowPicture wraps p, or the window itself when p is None.
	CreateWindowPicture(w WindowID, p Pixmap, visual Visual) (Picture, error)
	CreateBufferPicture(width, height int) (Picture, error)
	// RootPixmap returns the first pixmap published through one of props.
	RootPixmap(props []string) (Pixmap, bool)
	CreateTilePicture(p Pixmap) (Picture, error)
	// CreateFillPicture returns a repeating 1x1 picture filled with c.
	CreateFillPicture(c Color) (Picture, error)
	// CreateAlphaPicture returns a constant alpha mask.
	CreateAlphaPicture(alpha float64) (Picture, error)
	FreePicture(p Picture)
	Composite(op Op, src, mask, dst Picture, x, y, width, height int)
}

// Registrar claims the display-wide compositor role.
type Registrar interface {
	Register(name string) error
	// CurrentOwner reports the running compositor, if any.
	CurrentOwner() (WindowID, string, bool)
}

// AlreadyRunningError is returned by Register when another compositor owns
// the display.
type AlreadyRunningError struct {
	Owner WindowID
	Name  string
}

func (e *AlreadyRunningError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("another composite manager is already running (%s)", e.Name)
	}
	return fmt.Sprintf("another composite manager is already running (0x%x)", uint32(e.Owner))
}
