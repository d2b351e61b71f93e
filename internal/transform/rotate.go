// Package transform maps points between a surface's logical space and the
// rotated screen it is presented on.
package transform

import (
	"math"

	"geosketch/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

// Rotate turns p by deg degrees about pivot. Positive angles are clockwise on
// screen because the y axis points down.
func Rotate(p, pivot geometry.Point2D, deg float64) geometry.Point2D {
	if deg == 0 {
		return p
	}
	rot := r2.NewRotation(deg*math.Pi/180, pivot.Vec())
	return geometry.FromVec(rot.Rotate(p.Vec()))
}

// InverseRotate undoes Rotate for the same pivot and angle.
func InverseRotate(p, pivot geometry.Point2D, deg float64) geometry.Point2D {
	return Rotate(p, pivot, -deg)
}

// NormalizeAngle folds deg into [0, 360).
func NormalizeAngle(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -0 and values rounding up to 360
	if deg >= 360 || deg == 0 {
		return 0
	}
	return deg
}
