package compositor

import (
	"context"

	"github.com/1broseidon/xcomp/internal/platform"
)

// Flush paints the accumulated damage, if any, and resets the accumulator
// and the geometry-dirty flag. It reports whether a pass ran.
func (c *Compositor) Flush() bool {
	damage := c.damage.Take()
	if damage == platform.None {
		return false
	}
	c.Paint(damage)
	c.backend.Sync()
	c.damage.ClearGeometry()
	return true
}

// Run processes events until the source fails or ctx is cancelled. Each
// cycle blocks for one event, drains every event already pending, then
// paints at most once.
func (c *Compositor) Run(ctx context.Context, events platform.EventSource) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := events.NextEvent()
		if err != nil {
			return err
		}
		c.Handle(ev)

		for events.Pending() {
			ev, err := events.NextEvent()
			if err != nil {
				return err
			}
			c.Handle(ev)
		}

		c.Flush()
	}
}
