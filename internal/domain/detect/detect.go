// Package detect turns raw image frames into image-plane target features.
//
// Detection is deliberately decoupled from geometric back-projection: a
// Detector only ever reasons in pixels, so detection algorithms can be
// swapped without touching any coordinate-frame math downstream.
package detect

import (
	"context"
	"errors"
	"time"
)

// ErrCorruptFrame marks a frame whose pixel buffer does not match its
// declared dimensions. Callers skip the frame; it is never a detection miss.
var ErrCorruptFrame = errors.New("corrupt frame")

// Frame is a single grayscale image with its capture timestamp.
// Pixels is row-major, one byte per pixel.
type Frame struct {
	ID        string
	Timestamp time.Time
	Width     int
	Height    int
	Pixels    []byte
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return ErrCorruptFrame
	}
	if len(f.Pixels) != f.Width*f.Height {
		return ErrCorruptFrame
	}
	return nil
}

// At returns the pixel at (x, y). Bounds are the caller's problem.
func (f *Frame) At(x, y int) byte {
	return f.Pixels[y*f.Width+x]
}

// Feature is an image-plane detection: target centroid, apparent radius and
// a match strength in [0, 1].
type Feature struct {
	U        float64
	V        float64
	RadiusPx float64
	Strength float64
}

// Detector finds the landing target in a frame. The boolean reports whether
// a target was found; an error means the frame itself was unusable.
type Detector interface {
	Detect(ctx context.Context, f *Frame) (Feature, bool, error)
}
