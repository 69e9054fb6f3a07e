package x11

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/hashicorp/go-multierror"
)

// ErrClosed is returned once the server connection has gone away.
var ErrClosed = errors.New("x11 connection closed")

// Extension is a server extension the compositor depends on.
type Extension struct {
	Name     string
	Major    uint32
	Minor    uint32
	Required bool
}

// Connection manages the X11 connection, the extensions the compositor
// needs and the resources bound to the root window.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	Width  int
	Height int
	Depth  byte
	Visual xproto.Visualid

	// Extensions lists every extension probed, with the version the server
	// agreed to.
	Extensions []Extension
	HasShape   bool

	formats     map[xproto.Visualid]render.Pictforminfo
	argbFormat  render.Pictformat
	alphaFormat render.Pictformat

	damages map[xproto.Window]damage.Damage

	logger *slog.Logger
}

// NewConnection connects to display (empty for $DISPLAY) and negotiates the
// composite, damage, xfixes and render extensions. Every missing required
// extension is reported in the returned error.
func NewConnection(display string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to display %q: %w", display, err)
	}

	screen := xu.Screen()
	c := &Connection{
		XUtil:   xu,
		Root:    xu.RootWin(),
		Width:   int(screen.WidthInPixels),
		Height:  int(screen.HeightInPixels),
		Depth:   screen.RootDepth,
		Visual:  screen.RootVisual,
		damages: make(map[xproto.Window]damage.Damage),
		logger:  logger,
	}

	if err := c.initExtensions(); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	if err := c.loadFormats(); err != nil {
		xu.Conn().Close()
		return nil, err
	}
	return c, nil
}

func (c *Connection) initExtensions() error {
	conn := c.XUtil.Conn()
	var result *multierror.Error

	if err := composite.Init(conn); err != nil {
		result = multierror.Append(result, fmt.Errorf("composite extension: %w", err))
	} else if reply, err := composite.QueryVersion(conn, 0, 4).Reply(); err != nil {
		result = multierror.Append(result, fmt.Errorf("composite version: %w", err))
	} else {
		c.Extensions = append(c.Extensions, Extension{"Composite", reply.MajorVersion, reply.MinorVersion, true})
		// NameWindowPixmap arrived in 0.2.
		if reply.MajorVersion == 0 && reply.MinorVersion < 2 {
			result = multierror.Append(result, fmt.Errorf("composite %d.%d is too old, need 0.2",
				reply.MajorVersion, reply.MinorVersion))
		}
	}

	if err := damage.Init(conn); err != nil {
		result = multierror.Append(result, fmt.Errorf("damage extension: %w", err))
	} else if reply, err := damage.QueryVersion(conn, 1, 1).Reply(); err != nil {
		result = multierror.Append(result, fmt.Errorf("damage version: %w", err))
	} else {
		c.Extensions = append(c.Extensions, Extension{"DAMAGE", reply.MajorVersion, reply.MinorVersion, true})
	}

	if err := xfixes.Init(conn); err != nil {
		result = multierror.Append(result, fmt.Errorf("xfixes extension: %w", err))
	} else if reply, err := xfixes.QueryVersion(conn, 2, 0).Reply(); err != nil {
		result = multierror.Append(result, fmt.Errorf("xfixes version: %w", err))
	} else {
		c.Extensions = append(c.Extensions, Extension{"XFIXES", reply.MajorVersion, reply.MinorVersion, true})
	}

	if err := render.Init(conn); err != nil {
		result = multierror.Append(result, fmt.Errorf("render extension: %w", err))
	} else if reply, err := render.QueryVersion(conn, 0, 11).Reply(); err != nil {
		result = multierror.Append(result, fmt.Errorf("render version: %w", err))
	} else {
		c.Extensions = append(c.Extensions, Extension{"RENDER", reply.MajorVersion, reply.MinorVersion, true})
	}

	// Shape is optional: without it windows are treated as rectangles.
	if err := shape.Init(conn); err != nil {
		c.logger.Warn("shape extension unavailable, shaped windows are drawn as rectangles", "error", err)
	} else if reply, err := shape.QueryVersion(conn).Reply(); err == nil {
		c.HasShape = true
		c.Extensions = append(c.Extensions, Extension{"SHAPE", uint32(reply.MajorVersion), uint32(reply.MinorVersion), false})
	}

	return result.ErrorOrNil()
}

type checker interface {
	Check() error
}

// check waits for a void request to complete. Failures, typically against
// windows destroyed since the event that triggered the request, are logged
// and dropped.
func (c *Connection) check(request string, cookie checker) {
	if err := cookie.Check(); err != nil {
		c.logger.Debug("x11 request failed", "request", request, "error", err)
	}
}

// Close cleanly disconnects from the X11 server.
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// Sync waits until the server has processed every request sent so far.
func (c *Connection) Sync() {
	c.XUtil.Sync()
}

// GrabServer suspends processing of other clients' requests.
func (c *Connection) GrabServer() {
	c.check("GrabServer", xproto.GrabServerChecked(c.XUtil.Conn()))
}

// UngrabServer releases a GrabServer.
func (c *Connection) UngrabServer() {
	c.check("UngrabServer", xproto.UngrabServerChecked(c.XUtil.Conn()))
}

// RedirectSubwindows moves every child of the root off-screen. It fails when
// another client already redirects them manually.
func (c *Connection) RedirectSubwindows() error {
	return composite.RedirectSubwindowsChecked(c.XUtil.Conn(), c.Root, composite.RedirectManual).Check()
}

// SelectRootInput asks for the root events the compositor follows.
func (c *Connection) SelectRootInput() error {
	mask := uint32(xproto.EventMaskSubstructureNotify |
		xproto.EventMaskExposure |
		xproto.EventMaskStructureNotify |
		xproto.EventMaskPropertyChange)
	return xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), c.Root, xproto.CwEventMask, []uint32{mask}).Check()
}

// Children lists the root's children bottom-to-top.
func (c *Connection) Children() ([]xproto.Window, error) {
	reply, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Children, nil
}
