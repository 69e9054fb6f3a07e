package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
)

// selectionName is the per-screen compositing manager selection.
func (c *Connection) selectionName() string {
	return fmt.Sprintf("_NET_WM_CM_S%d", c.XUtil.Conn().DefaultScreen)
}

// SelectionOwner returns the window owning the compositing manager
// selection, or zero.
func (c *Connection) SelectionOwner() (xproto.Window, error) {
	atom, err := xprop.Atm(c.XUtil, c.selectionName())
	if err != nil {
		return 0, err
	}
	reply, err := xproto.GetSelectionOwner(c.XUtil.Conn(), atom).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Owner, nil
}

// WindowName returns the EWMH name of w, falling back to WM_NAME.
func (c *Connection) WindowName(w xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, w); err == nil && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}
	if name, err := icccm.WmNameGet(c.XUtil, w); err == nil {
		return strings.TrimSpace(name)
	}
	return ""
}

// AcquireSelection creates an unmapped window named name and makes it the
// owner of the compositing manager selection.
func (c *Connection) AcquireSelection(name string) (xproto.Window, error) {
	conn := c.XUtil.Conn()
	atom, err := xprop.Atm(c.XUtil, c.selectionName())
	if err != nil {
		return 0, err
	}

	w, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreateWindowChecked(conn, 0, w, c.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, 0, nil).Check(); err != nil {
		return 0, fmt.Errorf("create selection window: %w", err)
	}

	if err := ewmh.WmNameSet(c.XUtil, w, name); err != nil {
		c.logger.Debug("set _NET_WM_NAME failed", "error", err)
	}
	if err := icccm.WmNameSet(c.XUtil, w, name); err != nil {
		c.logger.Debug("set WM_NAME failed", "error", err)
	}

	if err := xproto.SetSelectionOwnerChecked(conn, w, atom, xproto.TimeCurrentTime).Check(); err != nil {
		return 0, fmt.Errorf("set selection owner: %w", err)
	}
	return w, nil
}
