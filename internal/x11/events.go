package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgbutil/xevent"
)

// NextEvent blocks until an event or a protocol error is available. Events
// already read from the socket are queued in xgbutil's event queue and
// served first. ErrClosed is returned once the connection is gone.
func (c *Connection) NextEvent() (xgb.Event, xgb.Error, error) {
	if xevent.Empty(c.XUtil) {
		ev, xerr := c.XUtil.Conn().WaitForEvent()
		if ev == nil && xerr == nil {
			return nil, nil, ErrClosed
		}
		xevent.Enqueue(c.XUtil, ev, xerr)
		c.poll()
	}
	ev, xerr := xevent.Dequeue(c.XUtil)
	return ev, xerr, nil
}

// Pending reports whether NextEvent would return without blocking.
func (c *Connection) Pending() bool {
	if !xevent.Empty(c.XUtil) {
		return true
	}
	return c.poll()
}

// poll moves every event already received into the queue.
func (c *Connection) poll() bool {
	queued := false
	for {
		ev, xerr := c.XUtil.Conn().PollForEvent()
		if ev == nil && xerr == nil {
			return queued
		}
		xevent.Enqueue(c.XUtil, ev, xerr)
		queued = true
	}
}
