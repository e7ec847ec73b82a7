// Package geom holds the numeric helpers shared by the joystick widgets:
// clamping, linear range mapping and the two constraint geometries.
package geom

import "math"

// Position is a normalized joystick position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Origin is the rest position of every widget.
var Origin = Position{}

// Norm returns the Euclidean norm of p.
func (p Position) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Point is a device (pixel) coordinate relative to a canvas' top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	} else if x > hi {
		return hi
	}
	return x
}

// LinearMap maps x affinely from [xlo, xhi] onto [ylo, yhi].
// The caller must guarantee xlo != xhi.
func LinearMap(x, xlo, xhi, ylo, yhi float64) float64 {
	return ylo + (x-xlo)/(xhi-xlo)*(yhi-ylo)
}

// ConstrainRect clamps each axis of p independently to [-1, 1].
func ConstrainRect(p Position) Position {
	return Position{X: Clamp(p.X, -1, 1), Y: Clamp(p.Y, -1, 1)}
}

// ConstrainCircle projects p onto the unit disk. Points outside the disk are
// scaled onto the unit circle, keeping their direction.
func ConstrainCircle(p Position) Position {
	norm := p.Norm()
	if norm > 1 {
		return Position{X: p.X / norm, Y: p.Y / norm}
	}
	return p
}
