// Package joystick implements the 2D joystick widget of the console: it maps
// pointer gestures on a canvas to constrained, normalized positions, renders
// itself and hands every committed position to a PositionSink.
package joystick

import (
	"fmt"
	"math"

	"github.com/open-teleop/console/pkg/dof"
	"github.com/open-teleop/console/pkg/geom"
	customlog "github.com/open-teleop/console/pkg/log"
)

// maxIndicatorStep bounds the per-call indicator displacement of
// SimulateIndicator (100ms period at one joystick range per 2 seconds).
const maxIndicatorStep = 0.1 * (1.0 / 2.0)

// Joystick is a single widget. It is not safe for concurrent use; the
// console drives all widgets from its event loop.
type Joystick struct {
	cfg       Config
	surface   Surface
	sink      PositionSink
	logger    customlog.Logger
	family    Family
	dimension float64

	pos       geom.Position
	indicator geom.Position
	hold      bool
}

// New binds a widget to the canvas named in cfg, sizes the canvas, selects
// the input family, renders once and registers for pointer events.
func New(cfg Config, host Host, sink PositionSink, logger customlog.Logger) (*Joystick, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("joystick %q: invalid size %dx%d", cfg.CanvasID, cfg.Width, cfg.Height)
	}
	surface, ok := host.Canvas(cfg.CanvasID)
	if !ok {
		return nil, fmt.Errorf("joystick %q: %w", cfg.CanvasID, ErrCanvasNotFound)
	}
	if sink == nil {
		sink = SinkFunc(func(geom.Position) {})
	}

	j := &Joystick{
		cfg:       cfg,
		surface:   surface,
		sink:      sink,
		logger:    logger,
		dimension: math.Min(float64(cfg.Width), float64(cfg.Height)),
	}

	surface.Resize(cfg.Width, cfg.Height)

	if host.TouchSupported() {
		j.family = Touch
		logger.Infof("Touch screen detected, joystick %s uses touch events", cfg.CanvasID)
	} else {
		j.family = Mouse
		logger.Infof("No touch screen, joystick %s uses mouse events", cfg.CanvasID)
	}

	j.Render()
	host.Listen(cfg.CanvasID, j.HandlePointer)
	return j, nil
}

// CanvasID returns the id of the canvas the widget is bound to.
func (j *Joystick) CanvasID() string { return j.cfg.CanvasID }

// Config returns the construction parameters.
func (j *Joystick) Config() Config { return j.cfg }

// Axes returns the DoFs bound to the X and Y axes.
func (j *Joystick) Axes() (x, y dof.ID) { return j.cfg.DofX, j.cfg.DofY }

// Family returns the input family chosen at construction.
func (j *Joystick) Family() Family { return j.family }

// Position returns the commanded position.
func (j *Joystick) Position() geom.Position { return j.pos }

// Held reports whether the pointer is captured by this widget.
func (j *Joystick) Held() bool { return j.hold }

// Indicator returns the indicated position. Without an indicator it mirrors
// the commanded position.
func (j *Joystick) Indicator() geom.Position {
	if !j.cfg.Indicator {
		return j.pos
	}
	return j.indicator
}

// SetIndicator stores the observed position. It does not redraw; callers
// batch updates and call Render afterwards.
func (j *Joystick) SetIndicator(pos geom.Position) {
	j.indicator = pos
}

// HandlePointer dispatches a raw pointer event. Events of the family not
// selected at construction are ignored, as are touch gestures with more
// than one contact.
func (j *Joystick) HandlePointer(ev PointerEvent) {
	if ev.Type.Family() != j.family {
		return
	}
	switch ev.Type {
	case MouseDown:
		j.OnPointerDown(ev.Point)
	case MouseMove:
		j.OnPointerMove(ev.Point)
	case MouseUp, MouseLeave:
		if j.hold {
			j.OnPointerUp()
		}
	case TouchStart:
		if len(ev.Touches) == 1 {
			j.OnPointerDown(ev.Touches[0])
		}
	case TouchMove:
		if len(ev.Touches) == 1 {
			j.OnPointerMove(ev.Touches[0])
		}
	case TouchEnd, TouchCancel:
		if len(ev.Touches) <= 1 {
			j.OnPointerUp()
		}
	}
}

// OnPointerDown captures the pointer and commits the position under it.
func (j *Joystick) OnPointerDown(pt geom.Point) {
	j.hold = true
	j.commit(j.positionAt(pt))
}

// OnPointerMove commits the position under the pointer while it is held.
func (j *Joystick) OnPointerMove(pt geom.Point) {
	if !j.hold {
		return
	}
	j.commit(j.positionAt(pt))
}

// OnPointerUp releases the pointer. Center-spring widgets return to the
// origin. The final position is always reported.
func (j *Joystick) OnPointerUp() {
	j.hold = false
	if j.cfg.CenterSpring {
		j.pos = geom.Origin
	}
	j.Render()
	j.sink.OnPositionChanged(j.pos)
}

func (j *Joystick) commit(pos geom.Position) {
	j.pos = pos
	j.Render()
	j.sink.OnPositionChanged(j.pos)
}

// positionAt maps a device coordinate to a constrained position.
//
//	x in [0 .. width]  <-> [-Scaling .. Scaling]
//	y in [height .. 0] <-> [-Scaling .. Scaling]
func (j *Joystick) positionAt(pt geom.Point) geom.Position {
	w, h := float64(j.cfg.Width), float64(j.cfg.Height)
	p := geom.Position{
		X: geom.LinearMap(pt.X, 0, w, -Scaling, Scaling),
		Y: geom.LinearMap(pt.Y, h, 0, -Scaling, Scaling),
	}
	if j.cfg.Mode == Circle {
		return geom.ConstrainCircle(p)
	}
	return geom.ConstrainRect(p)
}

// PointAt returns the device coordinate at which pos is drawn.
func (j *Joystick) PointAt(pos geom.Position) geom.Point {
	w, h := float64(j.cfg.Width), float64(j.cfg.Height)
	return geom.Point{
		X: geom.LinearMap(pos.X, -Scaling, Scaling, 0, w),
		Y: geom.LinearMap(pos.Y, -Scaling, Scaling, h, 0),
	}
}

// Render draws the widget from its current state: background, constraint
// space, indicator and nipple, in that order.
func (j *Joystick) Render() {
	c := j.surface
	w, h := float64(j.cfg.Width), float64(j.cfg.Height)
	s := Scaling
	d := j.dimension

	c.FillRect(0, 0, w, h, j.cfg.BackgroundColor)

	r := d / 10
	if j.cfg.Mode == Rect {
		x := geom.LinearMap(-1, -s, s, 0, w) + r/2
		y := geom.LinearMap(-1, -s, s, 0, h) + r/2
		rw := geom.LinearMap(1, 0, s, 0, w) - r
		rh := geom.LinearMap(1, 0, s, 0, h) - r
		c.StrokeRect(x, y, rw, rh, r, j.cfg.ConstraintColor)
		c.FillRect(x, y, rw, rh, j.cfg.ConstraintColor)
	} else {
		c.FillCircle(w/2, h/2, geom.LinearMap(1, 0, s, 0, d/2), j.cfg.ConstraintColor)
	}

	ind := j.PointAt(j.Indicator())
	c.FillCircle(ind.X, ind.Y, d/9, j.cfg.BackgroundColor)

	nip := j.PointAt(j.pos)
	c.FillCircle(nip.X, nip.Y, d/10, j.cfg.NippleColor)
}

// SimulateIndicator moves the indicator toward the commanded position at a
// bounded speed and redraws. It stands in for a robot when none is
// connected.
func (j *Joystick) SimulateIndicator() {
	dx := geom.Clamp(j.pos.X-j.indicator.X, -maxIndicatorStep, maxIndicatorStep)
	dy := geom.Clamp(j.pos.Y-j.indicator.Y, -maxIndicatorStep, maxIndicatorStep)
	j.indicator.X += dx
	j.indicator.Y += dy
	j.Render()
}
