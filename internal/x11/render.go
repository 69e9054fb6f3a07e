package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// loadFormats caches the picture format of every visual together with the
// 32-bit ARGB and 8-bit alpha formats used for solid pictures.
func (c *Connection) loadFormats() error {
	reply, err := render.QueryPictFormats(c.XUtil.Conn()).Reply()
	if err != nil {
		return fmt.Errorf("query picture formats: %w", err)
	}

	byID := make(map[render.Pictformat]render.Pictforminfo, len(reply.Formats))
	for _, f := range reply.Formats {
		byID[f.Id] = f
		if f.Type != render.PictTypeDirect {
			continue
		}
		switch {
		case f.Depth == 32 && f.Direct.AlphaMask == 0xff && f.Direct.RedMask == 0xff:
			c.argbFormat = f.Id
		case f.Depth == 8 && f.Direct.AlphaMask == 0xff && f.Direct.RedMask == 0:
			c.alphaFormat = f.Id
		}
	}
	if c.argbFormat == 0 || c.alphaFormat == 0 {
		return fmt.Errorf("server lacks the standard ARGB32 or A8 picture format")
	}

	c.formats = make(map[xproto.Visualid]render.Pictforminfo)
	for _, screen := range reply.Screens {
		for _, depth := range screen.Depths {
			for _, v := range depth.Visuals {
				if f, ok := byID[v.Format]; ok {
					c.formats[v.Visual] = f
				}
			}
		}
	}
	return nil
}

// VisualFormat returns the picture format behind visual.
func (c *Connection) VisualFormat(visual xproto.Visualid) (render.Pictforminfo, bool) {
	f, ok := c.formats[visual]
	return f, ok
}

// CreateDrawablePicture wraps a drawable in a picture of the format that
// matches visual. includeInferiors makes the picture see child windows.
func (c *Connection) CreateDrawablePicture(d xproto.Drawable, visual xproto.Visualid, includeInferiors bool) (render.Picture, error) {
	f, ok := c.formats[visual]
	if !ok {
		return 0, fmt.Errorf("no picture format for visual 0x%x", visual)
	}
	return c.createPicture(d, f.Id, includeInferiors, false)
}

// CreateRootPicture wraps the root window.
func (c *Connection) CreateRootPicture() (render.Picture, error) {
	return c.CreateDrawablePicture(xproto.Drawable(c.Root), c.Visual, true)
}

// CreateBufferPicture allocates an off-screen picture the size of the screen.
func (c *Connection) CreateBufferPicture(width, height int) (render.Picture, error) {
	conn := c.XUtil.Conn()
	pixmap, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreatePixmapChecked(conn, c.Depth, pixmap, xproto.Drawable(c.Root),
		uint16(width), uint16(height)).Check(); err != nil {
		return 0, fmt.Errorf("create buffer pixmap: %w", err)
	}
	// The picture keeps the pixmap alive.
	defer c.FreePixmap(pixmap)

	f, ok := c.formats[c.Visual]
	if !ok {
		return 0, fmt.Errorf("no picture format for the root visual")
	}
	return c.createPicture(xproto.Drawable(pixmap), f.Id, false, false)
}

// CreateTilePicture wraps a background pixmap as a repeating picture.
func (c *Connection) CreateTilePicture(pixmap xproto.Pixmap) (render.Picture, error) {
	f, ok := c.formats[c.Visual]
	if !ok {
		return 0, fmt.Errorf("no picture format for the root visual")
	}
	return c.createPicture(xproto.Drawable(pixmap), f.Id, false, true)
}

// CreateSolidPicture returns a repeating 1x1 picture filled with color. With
// alphaOnly the picture carries only an alpha channel, for use as a mask.
func (c *Connection) CreateSolidPicture(color render.Color, alphaOnly bool) (render.Picture, error) {
	conn := c.XUtil.Conn()
	depth, format := byte(32), c.argbFormat
	if alphaOnly {
		depth, format = 8, c.alphaFormat
	}

	pixmap, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreatePixmapChecked(conn, depth, pixmap, xproto.Drawable(c.Root), 1, 1).Check(); err != nil {
		return 0, fmt.Errorf("create solid pixmap: %w", err)
	}
	defer c.FreePixmap(pixmap)

	pic, err := c.createPicture(xproto.Drawable(pixmap), format, false, true)
	if err != nil {
		return 0, err
	}
	c.check("FillRectangles", render.FillRectanglesChecked(conn, render.PictOpSrc, pic, color,
		[]xproto.Rectangle{{Width: 1, Height: 1}}))
	return pic, nil
}

func (c *Connection) createPicture(d xproto.Drawable, format render.Pictformat, includeInferiors, repeat bool) (render.Picture, error) {
	conn := c.XUtil.Conn()
	pic, err := render.NewPictureId(conn)
	if err != nil {
		return 0, err
	}

	var mask uint32
	var values []uint32
	if repeat {
		mask |= render.CpRepeat
		values = append(values, render.RepeatNormal)
	}
	if includeInferiors {
		mask |= render.CpSubwindowMode
		values = append(values, xproto.SubwindowModeIncludeInferiors)
	}

	if err := render.CreatePictureChecked(conn, pic, d, format, mask, values).Check(); err != nil {
		return 0, fmt.Errorf("create picture: %w", err)
	}
	return pic, nil
}

// FreePicture releases a picture.
func (c *Connection) FreePicture(p render.Picture) {
	c.check("FreePicture", render.FreePictureChecked(c.XUtil.Conn(), p))
}

// Composite combines src, through mask, into dst. Source and mask are
// sampled from their origin.
func (c *Connection) Composite(op byte, src, mask, dst render.Picture, x, y, width, height int) {
	c.check("Composite", render.CompositeChecked(c.XUtil.Conn(), op, src, mask, dst,
		0, 0, 0, 0,
		int16(x), int16(y), uint16(width), uint16(height)))
}

// SetPictureClip clips drawing to p by region. Zero removes the clip.
func (c *Connection) SetPictureClip(p render.Picture, region xfixes.Region) {
	c.check("SetPictureClipRegion", xfixes.SetPictureClipRegionChecked(c.XUtil.Conn(), p, region, 0, 0))
}
