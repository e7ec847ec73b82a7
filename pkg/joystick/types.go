package joystick

import (
	"errors"
	"image/color"

	"github.com/open-teleop/console/pkg/dof"
	"github.com/open-teleop/console/pkg/geom"
)

// Scaling is the ratio between the canvas extent and the drawn constraint
// space: the canvas covers [-Scaling, Scaling] on both axes.
const Scaling = 1.3

// ErrCanvasNotFound is returned by New when the host has no canvas with the
// configured id.
var ErrCanvasNotFound = errors.New("canvas not found")

// Mode selects the constraint geometry of a widget.
type Mode int

const (
	// Rect clamps each axis independently to [-1, 1].
	Rect Mode = iota
	// Circle limits the position to the unit disk.
	Circle
)

func (m Mode) String() string {
	if m == Circle {
		return "circle"
	}
	return "rect"
}

// Config holds the immutable construction parameters of a widget.
type Config struct {
	CanvasID        string
	Width           int
	Height          int
	DofX            dof.ID
	DofY            dof.ID
	Mode            Mode
	CenterSpring    bool
	Indicator       bool
	BackgroundColor color.Color
	ConstraintColor color.Color
	NippleColor     color.Color
}

// Surface is the 2D drawing target a widget renders onto.
type Surface interface {
	Resize(width, height int)
	FillRect(x, y, w, h float64, c color.Color)
	// StrokeRect outlines a rectangle with round joins.
	StrokeRect(x, y, w, h, lineWidth float64, c color.Color)
	FillCircle(cx, cy, r float64, c color.Color)
}

// Host is the environment a widget lives in: it resolves canvases by id,
// tells whether touch input is available and delivers pointer events.
type Host interface {
	Canvas(id string) (Surface, bool)
	TouchSupported() bool
	Listen(id string, handler func(PointerEvent))
}

// PositionSink receives every position a widget commits.
type PositionSink interface {
	OnPositionChanged(pos geom.Position)
}

// SinkFunc adapts a plain function to PositionSink.
type SinkFunc func(pos geom.Position)

// OnPositionChanged calls f(pos).
func (f SinkFunc) OnPositionChanged(pos geom.Position) {
	f(pos)
}

// Family is the pointer event family a widget listens to.
type Family int

const (
	Mouse Family = iota
	Touch
)

// EventType names a pointer event using the DOM event names.
type EventType string

const (
	MouseDown   EventType = "mousedown"
	MouseMove   EventType = "mousemove"
	MouseUp     EventType = "mouseup"
	MouseLeave  EventType = "mouseleave"
	TouchStart  EventType = "touchstart"
	TouchMove   EventType = "touchmove"
	TouchEnd    EventType = "touchend"
	TouchCancel EventType = "touchcancel"
)

// Family returns the event family of t.
func (t EventType) Family() Family {
	switch t {
	case TouchStart, TouchMove, TouchEnd, TouchCancel:
		return Touch
	}
	return Mouse
}

// PointerEvent is one input event in canvas-relative device coordinates.
// Mouse events use Point; touch events carry the changed contacts.
type PointerEvent struct {
	Type    EventType    `json:"type"`
	Point   geom.Point   `json:"point"`
	Touches []geom.Point `json:"touches,omitempty"`
}
