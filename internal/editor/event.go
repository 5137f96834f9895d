package editor

import (
	"strings"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// Source identifies the kind of pointer that produced an event.
type Source string

// Pointer sources.
const (
	SourceMouse Source = "mouse"
	SourceTouch Source = "touch"
)

// EventType is the phase of a pointer gesture.
type EventType string

// Gesture phases.
const (
	EventDown   EventType = "down"
	EventMove   EventType = "move"
	EventUp     EventType = "up"
	EventCancel EventType = "cancel"
)

// Event is a raw pointer event in display coordinates. Mouse events carry
// Point; touch events carry Touches and only the first touch is used.
type Event struct {
	Type    EventType        `json:"type"`
	Source  Source           `json:"source,omitempty"`
	Point   geometry.Point   `json:"point"`
	Touches []geometry.Point `json:"touches,omitempty"`
	Display geometry.Size    `json:"display"`
}

// position returns the pointer location the event refers to. A touch event
// without touch points has no position.
func (e Event) position() (geometry.Point, bool) {
	if e.source() == SourceTouch {
		if len(e.Touches) == 0 {
			return geometry.Point{}, false
		}
		return e.Touches[0], true
	}
	return e.Point, true
}

func (e Event) source() Source {
	return Source(strings.ToLower(string(e.Source)))
}
