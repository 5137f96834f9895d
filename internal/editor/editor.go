// Package editor implements interactive corner adjustment.
//
// An Editor is a two-state machine. While Idle a press near a corner starts a
// drag; while Dragging every move relocates the active corner, clamped to the
// raster. A release always returns to Idle. Pointer positions arrive in
// display coordinates and are scaled to raster coordinates before use.
package editor

import (
	"strings"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// Default hit radii in raster pixels.
const (
	DefaultMouseRadius = 15.0
	DefaultTouchRadius = 30.0
)

// DragState records which corner, if any, is being dragged.
type DragState struct {
	Active   int  `json:"active"`
	Dragging bool `json:"dragging"`
}

// idle is the state outside of a gesture.
var idle = DragState{Active: -1}

// Option configures an Editor.
type Option func(*Editor)

// WithMouseRadius sets the hit radius for mouse presses.
func WithMouseRadius(r float64) Option {
	return func(e *Editor) {
		if r > 0 {
			e.mouseRadius = r
		}
	}
}

// WithTouchRadius sets the hit radius for touch presses.
func WithTouchRadius(r float64) Option {
	return func(e *Editor) {
		if r > 0 {
			e.touchRadius = r
		}
	}
}

// WithOnChange registers a callback invoked after every state or corner change.
func WithOnChange(fn func(geometry.CornerSet, DragState)) Option {
	return func(e *Editor) { e.onChange = fn }
}

// Editor owns one CornerSet and the drag state over a raster of fixed size.
// It is not safe for concurrent use.
type Editor struct {
	corners     geometry.CornerSet
	width       float64
	height      float64
	drag        DragState
	mouseRadius float64
	touchRadius float64
	onChange    func(geometry.CornerSet, DragState)
}

// New creates an Idle editor over corners for a rasterW x rasterH raster.
func New(corners geometry.CornerSet, rasterW, rasterH int, opts ...Option) *Editor {
	e := &Editor{
		corners:     corners,
		width:       float64(rasterW),
		height:      float64(rasterH),
		drag:        idle,
		mouseRadius: DefaultMouseRadius,
		touchRadius: DefaultTouchRadius,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Corners returns a copy of the current corners.
func (e *Editor) Corners() geometry.CornerSet { return e.corners }

// State returns the current drag state.
func (e *Editor) State() DragState { return e.drag }

// Bounds returns the raster size the corners are clamped to.
func (e *Editor) Bounds() geometry.Size { return geometry.Size{W: e.width, H: e.height} }

// Radius returns the hit radius for the given pointer source.
func (e *Editor) Radius(src Source) float64 {
	if Source(strings.ToLower(string(src))) == SourceTouch {
		return e.touchRadius
	}
	return e.mouseRadius
}

// HitTest returns the index of the first corner strictly within radius of p,
// scanning in TopLeft..BottomLeft order, or -1.
func (e *Editor) HitTest(p geometry.Point, radius float64) int {
	for i, c := range e.corners {
		if geometry.Dist(c, p) < radius {
			return i
		}
	}
	return -1
}

// Press starts a drag on the corner under p. It reports whether a drag
// started. A press during an active drag is ignored.
func (e *Editor) Press(src Source, p geometry.Point, display geometry.Size) bool {
	if e.drag.Dragging {
		return false
	}
	rp := e.toRaster(p, display)
	i := e.HitTest(rp, e.Radius(src))
	if i < 0 {
		return false
	}
	e.drag = DragState{Active: i, Dragging: true}
	e.notify()
	return true
}

// Move relocates the active corner to p, clamped to the raster. Moves
// outside a drag are ignored.
func (e *Editor) Move(p geometry.Point, display geometry.Size) bool {
	if !e.drag.Dragging {
		return false
	}
	rp := geometry.Clamp(e.toRaster(p, display), e.width, e.height)
	e.corners[e.drag.Active] = rp
	e.notify()
	return true
}

// Release ends any drag. It reports whether a drag was active.
func (e *Editor) Release() bool {
	was := e.drag.Dragging
	e.drag = idle
	if was {
		e.notify()
	}
	return was
}

// SetCorner places corner i at p, clamped to the raster. Indices outside
// 0..3 are ignored.
func (e *Editor) SetCorner(i int, p geometry.Point) bool {
	if i < 0 || i >= len(e.corners) {
		return false
	}
	e.corners[i] = geometry.Clamp(p, e.width, e.height)
	e.notify()
	return true
}

// Handle dispatches a raw pointer event. It reports whether the event
// changed the editor. Malformed or unknown events are no-ops.
func (e *Editor) Handle(ev Event) bool {
	switch EventType(strings.ToLower(string(ev.Type))) {
	case EventDown:
		p, ok := ev.position()
		if !ok {
			return false
		}
		return e.Press(ev.source(), p, ev.Display)
	case EventMove:
		p, ok := ev.position()
		if !ok {
			return false
		}
		return e.Move(p, ev.Display)
	case EventUp, EventCancel:
		return e.Release()
	default:
		return false
	}
}

func (e *Editor) toRaster(p geometry.Point, display geometry.Size) geometry.Point {
	return geometry.ScaleToRaster(p, display, e.Bounds())
}

func (e *Editor) notify() {
	if e.onChange != nil {
		e.onChange(e.corners, e.drag)
	}
}
