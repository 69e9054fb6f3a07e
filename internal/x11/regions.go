package x11

import (
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// CreateRegion creates a server region from rects. It returns zero when no
// identifier can be allocated.
func (c *Connection) CreateRegion(rects []xproto.Rectangle) xfixes.Region {
	conn := c.XUtil.Conn()
	r, err := xfixes.NewRegionId(conn)
	if err != nil {
		c.logger.Debug("region id allocation failed", "error", err)
		return 0
	}
	if err := xfixes.CreateRegionChecked(conn, r, rects).Check(); err != nil {
		c.logger.Debug("create region failed", "error", err)
		return 0
	}
	return r
}

// CreateWindowRegion creates a region with the window's bounding shape,
// relative to the window origin.
func (c *Connection) CreateWindowRegion(w xproto.Window) xfixes.Region {
	conn := c.XUtil.Conn()
	r, err := xfixes.NewRegionId(conn)
	if err != nil {
		c.logger.Debug("region id allocation failed", "error", err)
		return 0
	}
	if err := xfixes.CreateRegionFromWindowChecked(conn, r, w, shape.SkBounding).Check(); err != nil {
		c.logger.Debug("create window region failed", "window", w, "error", err)
		return 0
	}
	return r
}

// The combining wrappers take the destination first; xfixes takes it last.

func (c *Connection) UnionRegion(dst, a, b xfixes.Region) {
	c.check("UnionRegion", xfixes.UnionRegionChecked(c.XUtil.Conn(), a, b, dst))
}

func (c *Connection) SubtractRegion(dst, a, b xfixes.Region) {
	c.check("SubtractRegion", xfixes.SubtractRegionChecked(c.XUtil.Conn(), a, b, dst))
}

func (c *Connection) IntersectRegion(dst, a, b xfixes.Region) {
	c.check("IntersectRegion", xfixes.IntersectRegionChecked(c.XUtil.Conn(), a, b, dst))
}

func (c *Connection) TranslateRegion(r xfixes.Region, dx, dy int) {
	c.check("TranslateRegion", xfixes.TranslateRegionChecked(c.XUtil.Conn(), r, int16(dx), int16(dy)))
}

func (c *Connection) CopyRegion(dst, src xfixes.Region) {
	c.check("CopyRegion", xfixes.CopyRegionChecked(c.XUtil.Conn(), src, dst))
}

func (c *Connection) DestroyRegion(r xfixes.Region) {
	c.check("DestroyRegion", xfixes.DestroyRegionChecked(c.XUtil.Conn(), r))
}
