package editor

import (
	"testing"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frame = geometry.CornerSet{{X: 40, Y: 40}, {X: 280, Y: 40}, {X: 280, Y: 200}, {X: 40, Y: 200}}

var unscaled = geometry.Size{}

func newTestEditor(opts ...Option) *Editor {
	return New(frame, 320, 240, opts...)
}

func TestNew_Defaults(t *testing.T) {
	e := newTestEditor()
	assert.Equal(t, frame, e.Corners())
	assert.Equal(t, DragState{Active: -1}, e.State())
	assert.Equal(t, geometry.Size{W: 320, H: 240}, e.Bounds())
	assert.InDelta(t, DefaultMouseRadius, e.Radius(SourceMouse), 0)
	assert.InDelta(t, DefaultTouchRadius, e.Radius(SourceTouch), 0)
}

func TestOptions(t *testing.T) {
	e := newTestEditor(WithMouseRadius(5), WithTouchRadius(50))
	assert.InDelta(t, 5.0, e.Radius(SourceMouse), 0)
	assert.InDelta(t, 50.0, e.Radius(SourceTouch), 0)

	e = newTestEditor(WithMouseRadius(0), WithTouchRadius(-1))
	assert.InDelta(t, DefaultMouseRadius, e.Radius(SourceMouse), 0)
	assert.InDelta(t, DefaultTouchRadius, e.Radius(SourceTouch), 0)
}

func TestPress(t *testing.T) {
	tests := []struct {
		name       string
		src        Source
		p          geometry.Point
		wantHit    bool
		wantActive int
	}{
		{"mouse on corner", SourceMouse, geometry.Pt(40, 40), true, 0},
		{"mouse just inside radius", SourceMouse, geometry.Pt(40+14.9, 40), true, 0},
		{"mouse exactly at radius misses", SourceMouse, geometry.Pt(40+15, 40), false, -1},
		{"touch reaches further", SourceTouch, geometry.Pt(280, 200+25), true, 2},
		{"mouse misses at touch distance", SourceMouse, geometry.Pt(280, 200+25), false, -1},
		{"center misses", SourceMouse, geometry.Pt(160, 120), false, -1},
		{"bottom left", SourceMouse, geometry.Pt(45, 195), true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor()
			hit := e.Press(tt.src, tt.p, unscaled)
			assert.Equal(t, tt.wantHit, hit)
			assert.Equal(t, tt.wantActive, e.State().Active)
			assert.Equal(t, tt.wantHit, e.State().Dragging)
			assert.Equal(t, frame, e.Corners(), "press never moves a corner")
		})
	}
}

func TestPress_TieGoesToLowestIndex(t *testing.T) {
	overlapping := geometry.CornerSet{{X: 10, Y: 10}, {X: 12, Y: 10}, {X: 10, Y: 12}, {X: 12, Y: 12}}
	e := New(overlapping, 100, 100)
	require.True(t, e.Press(SourceMouse, geometry.Pt(11, 11), unscaled))
	assert.Equal(t, 0, e.State().Active)

	// Corner 1 is closer, but corner 0 is within radius and scanned first.
	e = New(overlapping, 100, 100)
	require.True(t, e.Press(SourceMouse, geometry.Pt(12.5, 10), unscaled))
	assert.Equal(t, 0, e.State().Active)
}

func TestPress_IgnoredWhileDragging(t *testing.T) {
	e := newTestEditor()
	require.True(t, e.Press(SourceMouse, geometry.Pt(40, 40), unscaled))
	assert.False(t, e.Press(SourceMouse, geometry.Pt(280, 40), unscaled))
	assert.Equal(t, 0, e.State().Active)
}

func TestPress_ScalesDisplayCoordinates(t *testing.T) {
	e := newTestEditor()
	// Display is half the raster size, so (140,20) maps to (280,40).
	display := geometry.Size{W: 160, H: 120}
	require.True(t, e.Press(SourceMouse, geometry.Pt(140, 20), display))
	assert.Equal(t, 1, e.State().Active)
}

func TestMove(t *testing.T) {
	e := newTestEditor()
	require.True(t, e.Press(SourceMouse, geometry.Pt(40, 40), unscaled))

	assert.True(t, e.Move(geometry.Pt(60, 70), unscaled))
	want := frame
	want[0] = geometry.Pt(60, 70)
	assert.Equal(t, want, e.Corners())

	// Repeating the same move changes nothing further.
	assert.True(t, e.Move(geometry.Pt(60, 70), unscaled))
	assert.Equal(t, want, e.Corners())
}

func TestMove_Clamps(t *testing.T) {
	e := newTestEditor()
	require.True(t, e.Press(SourceMouse, geometry.Pt(280, 200), unscaled))

	e.Move(geometry.Pt(500, -20), unscaled)
	assert.Equal(t, geometry.Pt(320, 0), e.Corners()[2])

	e.Move(geometry.Pt(-5, 900), unscaled)
	assert.Equal(t, geometry.Pt(0, 240), e.Corners()[2])
}

func TestMove_ScalesThenClamps(t *testing.T) {
	e := newTestEditor()
	display := geometry.Size{W: 640, H: 480}
	require.True(t, e.Press(SourceMouse, geometry.Pt(80, 80), display))
	e.Move(geometry.Pt(200, 100), display)
	assert.Equal(t, geometry.Pt(100, 50), e.Corners()[0])
}

func TestMove_IgnoredWhenIdle(t *testing.T) {
	e := newTestEditor()
	assert.False(t, e.Move(geometry.Pt(10, 10), unscaled))
	assert.Equal(t, frame, e.Corners())

	require.True(t, e.Press(SourceMouse, geometry.Pt(40, 40), unscaled))
	require.True(t, e.Release())
	assert.False(t, e.Move(geometry.Pt(10, 10), unscaled), "stray move after release")
	assert.Equal(t, frame, e.Corners())
}

func TestRelease(t *testing.T) {
	e := newTestEditor()
	assert.False(t, e.Release(), "release while idle is harmless")
	assert.Equal(t, DragState{Active: -1}, e.State())

	require.True(t, e.Press(SourceTouch, geometry.Pt(280, 40), unscaled))
	assert.True(t, e.Release())
	assert.Equal(t, DragState{Active: -1}, e.State())
}

func TestSetCorner(t *testing.T) {
	e := newTestEditor()
	assert.True(t, e.SetCorner(3, geometry.Pt(-10, 100)))
	assert.Equal(t, geometry.Pt(0, 100), e.Corners()[3])

	before := e.Corners()
	assert.False(t, e.SetCorner(4, geometry.Pt(1, 1)))
	assert.False(t, e.SetCorner(-1, geometry.Pt(1, 1)))
	assert.Equal(t, before, e.Corners())
}

func TestOnChange(t *testing.T) {
	var calls []DragState
	var last geometry.CornerSet
	e := newTestEditor(WithOnChange(func(c geometry.CornerSet, s DragState) {
		calls = append(calls, s)
		last = c
	}))

	e.Move(geometry.Pt(1, 1), unscaled) // ignored, no callback
	e.Press(SourceMouse, geometry.Pt(40, 40), unscaled)
	e.Move(geometry.Pt(50, 50), unscaled)
	e.Release()

	require.Len(t, calls, 3)
	assert.Equal(t, DragState{Active: 0, Dragging: true}, calls[0])
	assert.Equal(t, DragState{Active: 0, Dragging: true}, calls[1])
	assert.Equal(t, DragState{Active: -1}, calls[2])
	assert.Equal(t, geometry.Pt(50, 50), last[0])
}

func TestCornersReturnsCopy(t *testing.T) {
	e := newTestEditor()
	c := e.Corners()
	c[0] = geometry.Pt(999, 999)
	assert.Equal(t, frame, e.Corners())
}

func TestHandle(t *testing.T) {
	e := newTestEditor()

	assert.True(t, e.Handle(Event{Type: EventDown, Source: SourceMouse, Point: geometry.Pt(40, 40)}))
	assert.True(t, e.Handle(Event{Type: EventMove, Source: SourceMouse, Point: geometry.Pt(45, 48)}))
	assert.True(t, e.Handle(Event{Type: EventUp, Source: SourceMouse}))
	assert.Equal(t, geometry.Pt(45, 48), e.Corners()[0])
	assert.False(t, e.State().Dragging)

	// Touch uses the first touch point and the touch radius.
	assert.True(t, e.Handle(Event{
		Type:    EventDown,
		Source:  SourceTouch,
		Touches: []geometry.Point{{X: 280, Y: 225}, {X: 0, Y: 0}},
	}))
	assert.Equal(t, 2, e.State().Active)
	assert.True(t, e.Handle(Event{Type: EventCancel, Source: SourceTouch}))
	assert.False(t, e.State().Dragging)
}

func TestHandle_MalformedEvents(t *testing.T) {
	e := newTestEditor()

	assert.False(t, e.Handle(Event{Type: EventDown, Source: SourceTouch}), "touch without points")
	assert.False(t, e.Handle(Event{Type: "wheel", Point: geometry.Pt(40, 40)}))
	assert.False(t, e.Handle(Event{}))
	assert.Equal(t, DragState{Active: -1}, e.State())

	require.True(t, e.Handle(Event{Type: EventDown, Point: geometry.Pt(40, 40)}))
	assert.False(t, e.Handle(Event{Type: EventMove, Source: SourceTouch}), "touch move without points")
	assert.Equal(t, frame, e.Corners())
	assert.True(t, e.Handle(Event{Type: EventUp, Source: SourceTouch}), "touch end releases without points")
}

func TestHandle_CaseInsensitive(t *testing.T) {
	e := newTestEditor()
	assert.True(t, e.Handle(Event{Type: "DOWN", Source: "Touch", Touches: []geometry.Point{{X: 60, Y: 60}}}))
	assert.Equal(t, 0, e.State().Active)
}
