package platform

import (
	"errors"

	"github.com/1broseidon/xcomp/internal/region"
)

// ErrClosed is returned by an EventSource whose connection has gone away.
var ErrClosed = errors.New("event source closed")

// EventSource delivers protocol events one at a time.
type EventSource interface {
	// NextEvent blocks until an event is available.
	NextEvent() (Event, error)
	// Pending reports whether NextEvent would return without blocking.
	Pending() bool
}

// Event is one of the typed protocol events below.
type Event interface {
	isEvent()
}

// Stacking position for CirculateEvent.
const (
	PlaceOnTop = iota
	PlaceOnBottom
)

// ShapeKind selects which shape of a window changed.
type ShapeKind int

const (
	ShapeBounding ShapeKind = iota
	ShapeClip
	ShapeInput
)

type CreateEvent struct {
	Window WindowID
}

type ConfigureEvent struct {
	Window WindowID
	// Above is the sibling the window now sits directly above, or None for
	// the bottom of the stack.
	Above            WindowID
	X, Y             int
	Width, Height    int
	BorderWidth      int
	OverrideRedirect bool
}

type DestroyEvent struct {
	Window WindowID
}

type MapEvent struct {
	Window WindowID
}

type UnmapEvent struct {
	Window WindowID
}

type ReparentEvent struct {
	Window WindowID
	Parent WindowID
}

type CirculateEvent struct {
	Window WindowID
	Place  int
}

// ExposeEvent reports an exposed rectangle. Count is the number of expose
// events still to follow in the same series.
type ExposeEvent struct {
	Window WindowID
	Rect   region.Rect
	Count  int
}

type PropertyEvent struct {
	Window WindowID
	Name   string
}

// DamageEvent reports that a window's contents changed.
type DamageEvent struct {
	Window WindowID
	Area   region.Rect
}

// ShapeEvent reports a new shape for a window. Bounds is relative to the
// window origin.
type ShapeEvent struct {
	Window WindowID
	Kind   ShapeKind
	Bounds region.Rect
	Shaped bool
}

func (CreateEvent) isEvent()    {}
func (ConfigureEvent) isEvent() {}
func (DestroyEvent) isEvent()   {}
func (MapEvent) isEvent()       {}
func (UnmapEvent) isEvent()     {}
func (ReparentEvent) isEvent()  {}
func (CirculateEvent) isEvent() {}
func (ExposeEvent) isEvent()    {}
func (PropertyEvent) isEvent()  {}
func (DamageEvent) isEvent()    {}
func (ShapeEvent) isEvent()     {}
