package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// RootPixmap returns the first pixmap published on the root through one of
// props, the way wallpaper setters advertise the desktop background.
func (c *Connection) RootPixmap(props []string) (xproto.Pixmap, bool) {
	for _, name := range props {
		reply, err := xprop.GetProperty(c.XUtil, c.Root, name)
		if err != nil || reply.Type != xproto.AtomPixmap {
			continue
		}
		id, err := xprop.PropValNum(reply, nil)
		if err != nil || id == 0 {
			continue
		}
		return xproto.Pixmap(id), true
	}
	return 0, false
}
