// Package gamepad drives one joystick widget from a hardware game
// controller, as if an operator were dragging its nipple.
package gamepad

import (
	"context"
	"fmt"
	"math"
	"time"

	js "github.com/0xcafed00d/joystick"

	"github.com/open-teleop/console/pkg/geom"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/processing"
)

const axisMax = 32767

// Target is the widget side of the binding.
type Target interface {
	PointAt(pos geom.Position) geom.Point
	OnPointerDown(pt geom.Point)
	OnPointerMove(pt geom.Point)
	OnPointerUp()
}

// Poster queues work onto the console event loop.
type Poster interface {
	Post(task processing.Task) bool
}

// Options selects the stick axes and the polling behaviour.
type Options struct {
	AxisX        int
	AxisY        int
	Deadzone     float64
	PollInterval time.Duration
}

// OpenDevice opens the controller with the given index.
func OpenDevice(index int, logger customlog.Logger) (js.Joystick, error) {
	device, err := js.Open(index)
	if err != nil {
		return nil, fmt.Errorf("open gamepad %d: %w", index, err)
	}
	logger.Infof("Gamepad found: %s (%d axes, %d buttons)", device.Name(), device.AxisCount(), device.ButtonCount())
	return device, nil
}

// Poller samples a controller and replays its stick as pointer input.
type Poller struct {
	device js.Joystick
	target Target
	poster Poster
	opts   Options
	logger customlog.Logger

	// last is only touched by Run.
	last     geom.Position
	lastSent bool
	// engaged is only touched on the event loop.
	engaged bool
}

// NewPoller binds device to target.
func NewPoller(device js.Joystick, target Target, poster Poster, opts Options, logger customlog.Logger) *Poller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Millisecond
	}
	return &Poller{
		device: device,
		target: target,
		poster: poster,
		opts:   opts,
		logger: logger,
	}
}

// Run polls until ctx is done or the device fails. The stick is released
// on exit.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()
	defer p.poster.Post(func() { p.apply(geom.Origin, false) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		state, err := p.device.Read()
		if err != nil {
			return fmt.Errorf("reading gamepad: %w", err)
		}
		pos, active := Normalize(state, p.opts.AxisX, p.opts.AxisY, p.opts.Deadzone)
		if p.lastSent && pos == p.last {
			continue
		}
		p.last, p.lastSent = pos, true
		p.poster.Post(func() { p.apply(pos, active) })
	}
}

// apply runs on the event loop.
func (p *Poller) apply(pos geom.Position, active bool) {
	switch {
	case active && !p.engaged:
		p.engaged = true
		p.target.OnPointerDown(p.target.PointAt(pos))
	case active:
		p.target.OnPointerMove(p.target.PointAt(pos))
	case p.engaged:
		p.engaged = false
		p.target.OnPointerUp()
	}
}

// Normalize converts raw axes to a logical position with y up. Inside the
// deadzone the stick reads as released.
func Normalize(state js.State, axisX, axisY int, deadzone float64) (geom.Position, bool) {
	var pos geom.Position
	if axisX >= 0 && axisX < len(state.AxisData) {
		pos.X = geom.Clamp(float64(state.AxisData[axisX])/axisMax, -1, 1)
	}
	if axisY >= 0 && axisY < len(state.AxisData) {
		pos.Y = geom.Clamp(-float64(state.AxisData[axisY])/axisMax, -1, 1)
	}
	if math.Abs(pos.X) < deadzone && math.Abs(pos.Y) < deadzone {
		return geom.Origin, false
	}
	return pos, true
}
