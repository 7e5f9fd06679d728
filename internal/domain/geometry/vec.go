// Package geometry holds the camera model and the frame math that turns
// image-plane detections into vehicle-relative positions.
//
// Axes follow the body NED convention: X forward, Y right, Z down. Altitude
// above ground is therefore -Z.
package geometry

import "math"

// Vec3 is a three-dimensional vector in a right-handed frame.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// HorizontalNorm returns the length of the XY projection of v.
func (v Vec3) HorizontalNorm() float64 {
	return math.Hypot(v.X, v.Y)
}
