package connection

import (
	"github.com/open-teleop/console/pkg/processing"
)

// State is the lifecycle state of a Channel.
type State int32

const (
	Connecting State = iota
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel is a duplex text channel to the robot. Dial returns it before the
// underlying connection is established; readiness is reported through Events.
type Channel interface {
	State() State
	Send(frame string) error
	Close() error
}

// Events receives the lifecycle notifications of one Channel. Calls may come
// from any goroutine.
type Events interface {
	OnOpen()
	OnError(err error)
	OnMessage(frame string)
	OnClose()
}

// Dialer opens channels to an address.
type Dialer interface {
	Dial(address string, events Events) Channel
}

// Poster queues work onto the goroutine that owns the Manager.
type Poster interface {
	Post(task processing.Task) bool
}
