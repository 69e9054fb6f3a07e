package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// WindowInfo is a snapshot of a window's attributes and geometry.
type WindowInfo struct {
	X, Y             int
	Width, Height    int
	BorderWidth      int
	Viewable         bool
	InputOnly        bool
	OverrideRedirect bool
	Visual           xproto.Visualid
	// Format is nil when the visual has no picture format.
	Format *render.Pictforminfo
}

// WindowInfo fetches attributes and geometry of w in two round trips.
func (c *Connection) WindowInfo(w xproto.Window) (WindowInfo, error) {
	conn := c.XUtil.Conn()
	attrsCookie := xproto.GetWindowAttributes(conn, w)
	geomCookie := xproto.GetGeometry(conn, xproto.Drawable(w))

	attrs, err := attrsCookie.Reply()
	if err != nil {
		return WindowInfo{}, fmt.Errorf("window attributes of 0x%x: %w", w, err)
	}
	geom, err := geomCookie.Reply()
	if err != nil {
		return WindowInfo{}, fmt.Errorf("geometry of 0x%x: %w", w, err)
	}

	info := WindowInfo{
		X:                int(geom.X),
		Y:                int(geom.Y),
		Width:            int(geom.Width),
		Height:           int(geom.Height),
		BorderWidth:      int(geom.BorderWidth),
		Viewable:         attrs.MapState == xproto.MapStateViewable,
		InputOnly:        attrs.Class == xproto.WindowClassInputOnly,
		OverrideRedirect: attrs.OverrideRedirect,
		Visual:           attrs.Visual,
	}
	if f, ok := c.formats[attrs.Visual]; ok {
		info.Format = &f
	}
	return info, nil
}

// Watch creates a damage object for w and, when available, subscribes to
// its shape changes.
func (c *Connection) Watch(w xproto.Window) error {
	conn := c.XUtil.Conn()
	if _, ok := c.damages[w]; ok {
		return nil
	}
	d, err := damage.NewDamageId(conn)
	if err != nil {
		return err
	}
	if err := damage.CreateChecked(conn, d, xproto.Drawable(w), damage.ReportLevelNonEmpty).Check(); err != nil {
		return fmt.Errorf("create damage for 0x%x: %w", w, err)
	}
	c.damages[w] = d
	if c.HasShape {
		c.check("ShapeSelectInput", shape.SelectInputChecked(conn, w, true))
	}
	return nil
}

// Unwatch destroys the damage object of w.
func (c *Connection) Unwatch(w xproto.Window) {
	d, ok := c.damages[w]
	if !ok {
		return
	}
	delete(c.damages, w)
	c.check("DamageDestroy", damage.DestroyChecked(c.XUtil.Conn(), d))
}

// WatchedWindow maps a damage object back to its window.
func (c *Connection) WatchedWindow(d damage.Damage) (xproto.Window, bool) {
	for w, id := range c.damages {
		if id == d {
			return w, true
		}
	}
	return 0, false
}

// SubtractDamage acknowledges the pending damage of w, copying it into
// parts unless parts is zero.
func (c *Connection) SubtractDamage(w xproto.Window, parts xfixes.Region) {
	d, ok := c.damages[w]
	if !ok {
		return
	}
	c.check("DamageSubtract", damage.SubtractChecked(c.XUtil.Conn(), d, xfixes.RegionNone, parts))
}

// SelectProperties turns property-change reporting on w on or off.
func (c *Connection) SelectProperties(w xproto.Window, enable bool) {
	var mask uint32
	if enable {
		mask = xproto.EventMaskPropertyChange
	}
	c.check("ChangeWindowAttributes", xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), w, xproto.CwEventMask, []uint32{mask}))
}

// CardinalProperty reads a 32-bit property of w.
func (c *Connection) CardinalProperty(w xproto.Window, name string) (uint32, bool) {
	v, err := xprop.PropValNum(xprop.GetProperty(c.XUtil, w, name))
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// AtomName resolves an atom, using xgbutil's cache.
func (c *Connection) AtomName(atom xproto.Atom) string {
	name, err := xprop.AtomName(c.XUtil, atom)
	if err != nil {
		return ""
	}
	return name
}

// NameWindowPixmap binds the off-screen storage of w to a new pixmap.
func (c *Connection) NameWindowPixmap(w xproto.Window) (xproto.Pixmap, error) {
	conn := c.XUtil.Conn()
	p, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, err
	}
	if err := composite.NameWindowPixmapChecked(conn, w, p).Check(); err != nil {
		return 0, fmt.Errorf("name pixmap of 0x%x: %w", w, err)
	}
	return p, nil
}

// FreePixmap releases a pixmap.
func (c *Connection) FreePixmap(p xproto.Pixmap) {
	c.check("FreePixmap", xproto.FreePixmapChecked(c.XUtil.Conn(), p))
}
