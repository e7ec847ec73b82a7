// Package dof holds the degree-of-freedom registry: the commanded vector
// written by the joystick widgets and the observed vector received from the
// robot, plus the collaborators notified when either changes.
package dof

import (
	"github.com/open-teleop/console/pkg/geom"
	customlog "github.com/open-teleop/console/pkg/log"
)

// Display is notified whenever a registry entry changes, so that a table or
// HUD can refresh.
type Display interface {
	OnCommandChanged(id ID, value float64)
	OnObservedChanged(id ID, value float64)
}

// CommandSender transmits the command vector. TimerActive reports whether a
// periodic send is already running, in which case the registry does not send
// on every change.
type CommandSender interface {
	TimerActive() bool
	SendCommand()
}

// Indicator is a widget that shows the observed position of its DoF pair.
type Indicator interface {
	Axes() (x, y ID)
	Indicator() geom.Position
	SetIndicator(pos geom.Position)
	Render()
}

// Registry owns the commanded (setPos) and observed (curPos) vectors. It is
// driven from the console event loop and is not safe for concurrent use.
type Registry struct {
	logger     customlog.Logger
	setPos     [Count]float64
	curPos     [Count]float64
	sender     CommandSender
	displays   []Display
	indicators []Indicator
}

// NewRegistry creates a registry with both vectors zeroed.
func NewRegistry(logger customlog.Logger) *Registry {
	return &Registry{logger: logger}
}

// SetSender installs the transmitter used for event-driven sends.
func (r *Registry) SetSender(s CommandSender) {
	r.sender = s
}

// AddDisplay registers a change listener.
func (r *Registry) AddDisplay(d Display) {
	r.displays = append(r.displays, d)
}

// AttachIndicator registers a widget whose indicator follows the observed
// vector.
func (r *Registry) AttachIndicator(ind Indicator) {
	r.indicators = append(r.indicators, ind)
}

// Commands returns a copy of the commanded vector.
func (r *Registry) Commands() [Count]float64 {
	return r.setPos
}

// Observed returns a copy of the observed vector.
func (r *Registry) Observed() [Count]float64 {
	return r.curPos
}

// SetCommand writes pos.X into the x slot and pos.Y into the y slot; None
// skips an axis. When no periodic send is running the new vector is sent
// immediately.
func (r *Registry) SetCommand(x, y ID, pos geom.Position) {
	if x.Valid() {
		r.setPos[x] = pos.X
		r.notifyCommand(x, pos.X)
	}
	if y.Valid() {
		r.setPos[y] = pos.Y
		r.notifyCommand(y, pos.Y)
	}
	if r.sender != nil && !r.sender.TimerActive() {
		r.sender.SendCommand()
	}
}

// ApplyObserved overwrites the observed vector with values, one entry per
// DoF in wire order. Values beyond Count are logged and dropped. Every
// attached indicator is updated from its own DoF pair and redrawn once.
func (r *Registry) ApplyObserved(values []float64) {
	n := len(values)
	if n > Count {
		r.logger.Warnf("Observation carries %d values, only %d DoFs are known; extra values dropped", n, Count)
		n = Count
	}
	for i := 0; i < n; i++ {
		r.curPos[i] = values[i]
	}

	for _, ind := range r.indicators {
		x, y := ind.Axes()
		p := ind.Indicator()
		if x.Valid() && int(x) < n {
			p.X = r.curPos[x]
		}
		if y.Valid() && int(y) < n {
			p.Y = r.curPos[y]
		}
		ind.SetIndicator(p)
	}
	for _, ind := range r.indicators {
		ind.Render()
	}

	for i := 0; i < n; i++ {
		for _, d := range r.displays {
			d.OnObservedChanged(ID(i), r.curPos[i])
		}
	}
}

func (r *Registry) notifyCommand(id ID, value float64) {
	for _, d := range r.displays {
		d.OnCommandChanged(id, value)
	}
}

// Binding connects a widget to the registry: it is the PositionSink of a
// joystick controlling the x and y DoFs.
type Binding struct {
	Registry *Registry
	X, Y     ID
}

// OnPositionChanged forwards pos to the registry.
func (b Binding) OnPositionChanged(pos geom.Position) {
	b.Registry.SetCommand(b.X, b.Y, pos)
}
