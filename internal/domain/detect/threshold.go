package detect

import (
	"context"
	"math"
)

// Default detector tuning.
const (
	defaultLuminance = 200
	defaultMinArea   = 16
)

// ThresholdDetector is the stock detector: it treats the landing target as
// the brightest blob in the frame (a high-contrast beacon or lit pad),
// thresholds on luminance and takes the centroid of the surviving pixels.
type ThresholdDetector struct {
	luminance byte
	minArea   int
}

// ThresholdOption configures a ThresholdDetector.
type ThresholdOption func(*ThresholdDetector)

// WithLuminance sets the luminance cutoff for target pixels.
func WithLuminance(l byte) ThresholdOption {
	return func(d *ThresholdDetector) {
		d.luminance = l
	}
}

// WithMinArea sets the minimum blob area, in pixels, accepted as a target.
func WithMinArea(area int) ThresholdOption {
	return func(d *ThresholdDetector) {
		if area > 0 {
			d.minArea = area
		}
	}
}

// NewThresholdDetector creates a detector with the given options.
func NewThresholdDetector(opts ...ThresholdOption) *ThresholdDetector {
	d := &ThresholdDetector{
		luminance: defaultLuminance,
		minArea:   defaultMinArea,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scans the frame for bright pixels and reports their centroid as the
// target feature. The apparent radius assumes a roughly circular blob.
func (d *ThresholdDetector) Detect(_ context.Context, f *Frame) (Feature, bool, error) {
	if err := f.Validate(); err != nil {
		return Feature{}, false, err
	}

	var (
		area       int
		sumU, sumV float64
		sumLum     float64
	)
	for y := 0; y < f.Height; y++ {
		row := f.Pixels[y*f.Width : (y+1)*f.Width]
		for x, p := range row {
			if p < d.luminance {
				continue
			}
			area++
			sumU += float64(x)
			sumV += float64(y)
			sumLum += float64(p)
		}
	}

	if area < d.minArea {
		return Feature{}, false, nil
	}

	// Match strength: how far above the cutoff the blob sits, on average.
	mean := sumLum / float64(area)
	strength := (mean - float64(d.luminance)) / float64(255-int(d.luminance))

	return Feature{
		U:        sumU / float64(area),
		V:        sumV / float64(area),
		RadiusPx: math.Sqrt(float64(area) / math.Pi),
		Strength: math.Max(0, math.Min(1, strength)),
	}, true, nil
}
