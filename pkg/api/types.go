package api

import (
	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/geom"
	"github.com/open-teleop/console/pkg/joystick"
)

// --- Data Structures for WebSocket Messages ---

// InputMessage is one pointer event sent by a browser, in canvas pixels.
type InputMessage struct {
	Canvas  string       `json:"canvas"`
	Type    string       `json:"type"`
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
	Touches []geom.Point `json:"touches,omitempty"`
}

// PointerEvent converts the message for the widget layer.
func (m InputMessage) PointerEvent() joystick.PointerEvent {
	return joystick.PointerEvent{
		Type:    joystick.EventType(m.Type),
		Point:   geom.Point{X: m.X, Y: m.Y},
		Touches: m.Touches,
	}
}

// Outbound message kinds.
const (
	KindCommand  = "command"
	KindObserved = "observed"
	KindLog      = "log"
	KindLayout   = "layout"
	KindError    = "error"
)

// DofUpdate reports one registry change.
type DofUpdate struct {
	Kind  string  `json:"kind"`
	Dof   string  `json:"dof"`
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// LogLine carries one operator log line.
type LogLine struct {
	Kind string `json:"kind"`
	Line string `json:"line"`
}

// LayoutMessage is sent once when a client connects.
type LayoutMessage struct {
	Kind    string              `json:"kind"`
	Widgets []teleop.WidgetInfo `json:"widgets"`
	Names   []string            `json:"names"`
}

// ErrorMessage reports a rejected input message to its sender.
type ErrorMessage struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// ConnectRequest is the optional body of POST /api/v1/connect.
type ConnectRequest struct {
	Address string `json:"address"`
}

// DofResponse is returned by GET /api/v1/dof.
type DofResponse struct {
	Names       []string  `json:"names"`
	Set         []float64 `json:"set"`
	Cur         []float64 `json:"cur"`
	Connected   bool      `json:"connected"`
	TimerActive bool      `json:"timer_active"`
	Address     string    `json:"address"`
}
