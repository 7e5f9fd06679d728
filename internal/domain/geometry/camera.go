package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors for camera construction and back-projection.
var (
	ErrInvalidIntrinsics = errors.New("invalid camera intrinsics")
	ErrInvalidGeometry   = errors.New("invalid target geometry")
	ErrDegenerateFeature = errors.New("degenerate image feature")
)

// Intrinsics is the pinhole model of the downward camera.
type Intrinsics struct {
	// Fx, Fy are focal lengths in pixels; Cx, Cy the principal point.
	Fx float64 `koanf:"fx"`
	Fy float64 `koanf:"fy"`
	Cx float64 `koanf:"cx"`
	Cy float64 `koanf:"cy"`

	// Width and Height bound the sensor in pixels.
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
}

// Validate reports whether the intrinsics describe a usable camera.
func (in Intrinsics) Validate() error {
	switch {
	case in.Fx <= 0 || in.Fy <= 0:
		return fmt.Errorf("%w: focal lengths must be positive", ErrInvalidIntrinsics)
	case in.Width <= 0 || in.Height <= 0:
		return fmt.Errorf("%w: sensor dimensions must be positive", ErrInvalidIntrinsics)
	case in.Cx <= 0 || in.Cx >= float64(in.Width):
		return fmt.Errorf("%w: principal point outside sensor", ErrInvalidIntrinsics)
	case in.Cy <= 0 || in.Cy >= float64(in.Height):
		return fmt.Errorf("%w: principal point outside sensor", ErrInvalidIntrinsics)
	}
	return nil
}

// Extrinsics is the camera-to-body mounting rotation, as intrinsic
// roll/pitch/yaw in radians.
type Extrinsics struct {
	Roll  float64 `koanf:"roll"`
	Pitch float64 `koanf:"pitch"`
	Yaw   float64 `koanf:"yaw"`
}

// rotation builds the 3x3 camera-to-body rotation matrix R = Rz(yaw)·Ry(pitch)·Rx(roll).
func (e Extrinsics) rotation() *mat.Dense {
	cr, sr := math.Cos(e.Roll), math.Sin(e.Roll)
	cp, sp := math.Cos(e.Pitch), math.Sin(e.Pitch)
	cy, sy := math.Cos(e.Yaw), math.Sin(e.Yaw)

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cr, -sr,
		0, sr, cr,
	})
	ry := mat.NewDense(3, 3, []float64{
		cp, 0, sp,
		0, 1, 0,
		-sp, 0, cp,
	})
	rz := mat.NewDense(3, 3, []float64{
		cy, -sy, 0,
		sy, cy, 0,
		0, 0, 1,
	})

	var tmp, r mat.Dense
	tmp.Mul(ry, rx)
	r.Mul(rz, &tmp)
	return mat.DenseCopyOf(&r)
}

// Camera back-projects image-plane features into body-frame positions using
// the pinhole model and the known physical radius of the landing target.
type Camera struct {
	intr         Intrinsics
	rot          *mat.Dense
	targetRadius float64
}

// NewCamera builds a camera from calibration inputs. Calibration problems are
// startup-fatal by contract, so the constructor is the only place they are
// checked.
func NewCamera(intr Intrinsics, extr Extrinsics, targetRadiusMeters float64) (*Camera, error) {
	if err := intr.Validate(); err != nil {
		return nil, err
	}
	if targetRadiusMeters <= 0 {
		return nil, fmt.Errorf("%w: target radius must be positive, got %v", ErrInvalidGeometry, targetRadiusMeters)
	}
	return &Camera{
		intr:         intr,
		rot:          extr.rotation(),
		targetRadius: targetRadiusMeters,
	}, nil
}

// Intrinsics returns the calibration the camera was built with.
func (c *Camera) Intrinsics() Intrinsics { return c.intr }

// BackProject converts a detected target centroid (u, v) with apparent radius
// radiusPx into a body-frame position of the target relative to the vehicle.
//
// Range recovery uses similar triangles: depth = fx * R / r, with R the
// physical target radius and r the apparent radius in pixels.
func (c *Camera) BackProject(u, v, radiusPx float64) (Vec3, error) {
	if radiusPx <= 0 {
		return Vec3{}, fmt.Errorf("%w: apparent radius %v px", ErrDegenerateFeature, radiusPx)
	}

	depth := c.intr.Fx * c.targetRadius / radiusPx

	// Optical frame: x right, y down, z out along the boresight.
	cam := mat.NewVecDense(3, []float64{
		(u - c.intr.Cx) * depth / c.intr.Fx,
		(v - c.intr.Cy) * depth / c.intr.Fy,
		depth,
	})

	var body mat.VecDense
	body.MulVec(c.rot, cam)
	return Vec3{X: body.AtVec(0), Y: body.AtVec(1), Z: body.AtVec(2)}, nil
}

// EdgeProximity returns how close (u, v) sits to the frame border, normalized
// to [0, 1]: 1 at the exact center, 0 on the border. Detections near the edge
// are partially cropped and deserve less trust.
func (c *Camera) EdgeProximity(u, v float64) float64 {
	w, h := float64(c.intr.Width), float64(c.intr.Height)
	dx := math.Min(u, w-u) / (w / 2)
	dy := math.Min(v, h-v) / (h / 2)
	p := math.Min(dx, dy)
	return math.Max(0, math.Min(1, p))
}
