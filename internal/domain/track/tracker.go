package track

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/pkg/logger"
	"github.com/kenanunal/lander/pkg/metrics"
)

// fullConfidenceRadiusPx is the apparent radius at which target size stops
// penalizing confidence. Below it the target is small in frame and range
// recovery gets noisy.
const fullConfidenceRadiusPx = 12.0

// ErrMissingCalibration is returned when a tracker is constructed without a
// camera model. Calibration problems are fatal at startup, never per frame.
var ErrMissingCalibration = errors.New("missing camera calibration")

// Tracker runs detection and back-projection over incoming frames. It is
// stateless across frames apart from a skipped-frame counter.
type Tracker struct {
	detector detect.Detector
	camera   *geometry.Camera
	log      logger.Logger
	annotate func(*detect.Frame)

	corruptFrames atomic.Int64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithAnnotationSink registers a consumer for the annotated frame stream
// (telemetry). The sink receives a copy; nothing it does can reach detection.
func WithAnnotationSink(sink func(*detect.Frame)) Option {
	return func(t *Tracker) {
		t.annotate = sink
	}
}

// New builds a Tracker. The camera model is mandatory; a nil camera is a
// configuration error surfaced immediately, before any frame is processed.
func New(detector detect.Detector, camera *geometry.Camera, opts ...Option) (*Tracker, error) {
	if camera == nil {
		return nil, ErrMissingCalibration
	}
	if detector == nil {
		return nil, errors.New("nil detector")
	}
	t := &Tracker{
		detector: detector,
		camera:   camera,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get().Named("tracker")
	}
	return t, nil
}

// Process converts one frame into exactly one Observation. A detection miss
// yields a Valid=false observation with no position data. A corrupt frame
// yields an error and no observation; the caller publishes nothing for it.
func (t *Tracker) Process(ctx context.Context, f *detect.Frame) (Observation, error) {
	metrics.RecordFrameProcessed()

	feat, found, err := t.detector.Detect(ctx, f)
	if err != nil {
		t.corruptFrames.Add(1)
		metrics.RecordFrameCorrupt()
		t.log.Warn(ctx, "skipping unusable frame",
			logger.String("frame", f.ID),
			logger.Error(err),
		)
		return Observation{}, fmt.Errorf("detect frame %s: %w", f.ID, err)
	}

	if !found {
		if t.annotate != nil {
			t.annotate(f)
		}
		return Observation{Timestamp: f.Timestamp, Valid: false}, nil
	}

	pos, err := t.camera.BackProject(feat.U, feat.V, feat.RadiusPx)
	if err != nil {
		// A degenerate feature is a perception miss, not a pipeline fault.
		t.log.Debug(ctx, "back-projection rejected feature",
			logger.String("frame", f.ID),
			logger.Error(err),
		)
		return Observation{Timestamp: f.Timestamp, Valid: false}, nil
	}

	metrics.RecordDetection()
	conf := t.confidence(feat)
	metrics.RecordObservationConfidence(conf)

	if t.annotate != nil {
		t.annotate(t.Annotate(f, feat))
	}

	return Observation{
		Timestamp:  f.Timestamp,
		Position:   pos,
		Confidence: conf,
		Valid:      true,
	}, nil
}

// confidence blends match strength, target size in frame, and distance from
// the frame border into one [0, 1] score.
func (t *Tracker) confidence(feat detect.Feature) float64 {
	size := math.Min(1, feat.RadiusPx/fullConfidenceRadiusPx)
	edge := t.camera.EdgeProximity(feat.U, feat.V)
	conf := feat.Strength * size * (0.5 + 0.5*edge)
	return math.Max(0, math.Min(1, conf))
}

// CorruptFrames returns how many frames were skipped as malformed.
func (t *Tracker) CorruptFrames() int64 {
	return t.corruptFrames.Load()
}

// Annotate returns a copy of the frame with a crosshair over the detected
// feature, for the telemetry stream. It never mutates its input and nothing
// here feeds back into detection.
func (t *Tracker) Annotate(f *detect.Frame, feat detect.Feature) *detect.Frame {
	out := &detect.Frame{
		ID:        f.ID,
		Timestamp: f.Timestamp,
		Width:     f.Width,
		Height:    f.Height,
		Pixels:    append([]byte(nil), f.Pixels...),
	}
	u, v := int(feat.U), int(feat.V)
	arm := int(feat.RadiusPx) + 4
	for d := -arm; d <= arm; d++ {
		if x := u + d; x >= 0 && x < out.Width && v >= 0 && v < out.Height {
			out.Pixels[v*out.Width+x] = 255
		}
		if y := v + d; y >= 0 && y < out.Height && u >= 0 && u < out.Width {
			out.Pixels[y*out.Width+u] = 255
		}
	}
	return out
}
