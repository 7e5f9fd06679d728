// Package simflight flies the whole pipeline against a simulated vehicle
// and synthetically rendered camera frames: an end-to-end bench mission with
// no hardware attached.
package simflight

import (
	"time"

	"github.com/google/uuid"

	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/internal/domain/geometry"
)

const (
	backgroundLuminance = 24
	targetLuminance     = 250
)

// Scene renders nadir frames of a bright circular landing target seen from
// the vehicle's position. The camera mount is assumed boresight-down with
// optical axes aligned to the body, matching zero extrinsics.
type Scene struct {
	intr         geometry.Intrinsics
	targetRadius float64
	target       geometry.Vec3
}

// NewScene places a target of the given physical radius at pos (Z up to the
// caller; a ground target sits at Z=0).
func NewScene(intr geometry.Intrinsics, targetRadiusMeters float64, pos geometry.Vec3) *Scene {
	return &Scene{
		intr:         intr,
		targetRadius: targetRadiusMeters,
		target:       pos,
	}
}

// Render produces one frame as seen from vehiclePos. The projection is the
// exact inverse of the pinhole back-projection, so a detector finding the
// blob centroid recovers the true relative position.
func (s *Scene) Render(vehiclePos geometry.Vec3, now time.Time) *detect.Frame {
	f := &detect.Frame{
		ID:        uuid.NewString(),
		Timestamp: now,
		Width:     s.intr.Width,
		Height:    s.intr.Height,
		Pixels:    make([]byte, s.intr.Width*s.intr.Height),
	}
	for i := range f.Pixels {
		f.Pixels[i] = backgroundLuminance
	}

	rel := s.target.Sub(vehiclePos)
	depth := rel.Z
	if depth <= 0 {
		// Target above or level with the camera: empty frame.
		return f
	}

	u := s.intr.Cx + rel.X*s.intr.Fx/depth
	v := s.intr.Cy + rel.Y*s.intr.Fy/depth
	r := s.intr.Fx * s.targetRadius / depth

	minX, maxX := int(u-r)-1, int(u+r)+1
	minY, maxY := int(v-r)-1, int(v+r)+1
	for y := minY; y <= maxY; y++ {
		if y < 0 || y >= f.Height {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < 0 || x >= f.Width {
				continue
			}
			dx, dy := float64(x)-u, float64(y)-v
			if dx*dx+dy*dy <= r*r {
				f.Pixels[y*f.Width+x] = targetLuminance
			}
		}
	}
	return f
}
