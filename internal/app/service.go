// Package service wires the tracker, the commander and the vehicle bridge
// into one running pipeline, and implements the dependencies required by the
// HTTP status API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kenanunal/lander/internal/adapters/bus"
	"github.com/kenanunal/lander/internal/adapters/flightlog"
	"github.com/kenanunal/lander/internal/adapters/http/api"
	"github.com/kenanunal/lander/internal/adapters/telemetry"
	"github.com/kenanunal/lander/internal/adapters/vehicle"
	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/internal/domain/track"
	"github.com/kenanunal/lander/pkg/logger"
	"github.com/kenanunal/lander/pkg/metrics"
)

// Defaults.
const (
	defaultControlRate     = 100 * time.Millisecond // 10 Hz
	transitionRingCapacity = 128
)

// FrameSource delivers image frames from the camera pipeline. The channel
// closes when the source shuts down.
type FrameSource interface {
	Frames() <-chan *detect.Frame
}

// Service owns the perception-to-control loop: one goroutine per producer,
// last-value cells in between, a fixed-rate control tick on the consumer
// side. Nothing in the pipeline blocks anything else.
type Service struct {
	mu sync.Mutex

	// Collaborators.
	bridge   vehicle.Bridge
	frames   FrameSource
	detector detect.Detector
	camera   *geometry.Camera
	relay    *telemetry.Relay
	flog     *flightlog.Log

	// Built at Start.
	tracker *track.Tracker
	cmdr    *commander.Commander

	// Last-value cells between producers and the control tick.
	obsCell *bus.Latest[track.Observation]
	vsCell  *bus.Latest[commander.VehicleState]

	// Transition history for the status API when no flight log is wired.
	ringMu sync.RWMutex
	ring   []flightlog.Entry
	lastTr *commander.Transition

	cmdrCfg     commander.Config
	controlRate time.Duration

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithBridge sets the vehicle interface.
func WithBridge(b vehicle.Bridge) Option {
	return func(s *Service) {
		s.bridge = b
	}
}

// WithFrameSource sets the camera frame source.
func WithFrameSource(fs FrameSource) Option {
	return func(s *Service) {
		s.frames = fs
	}
}

// WithDetector sets the detection capability.
func WithDetector(d detect.Detector) Option {
	return func(s *Service) {
		s.detector = d
	}
}

// WithCamera sets the calibrated camera model.
func WithCamera(c *geometry.Camera) Option {
	return func(s *Service) {
		s.camera = c
	}
}

// WithCommanderConfig sets the state machine thresholds.
func WithCommanderConfig(cfg commander.Config) Option {
	return func(s *Service) {
		s.cmdrCfg = cfg
	}
}

// WithControlRate sets the commander tick period.
func WithControlRate(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.controlRate = d
		}
	}
}

// WithTelemetryRelay sets the telemetry relay. Optional.
func WithTelemetryRelay(r *telemetry.Relay) Option {
	return func(s *Service) {
		s.relay = r
	}
}

// WithFlightLog sets the persistent flight log. Optional.
func WithFlightLog(l *flightlog.Log) Option {
	return func(s *Service) {
		s.flog = l
	}
}

// New constructs a Service. Mandatory collaborators are checked at Start so
// option order never matters.
func New(opts ...Option) *Service {
	s := &Service{
		controlRate: defaultControlRate,
		obsCell:     bus.NewLatest[track.Observation](),
		vsCell:      bus.NewLatest[commander.VehicleState](),
		ring:        make([]flightlog.Entry, 0, transitionRingCapacity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the tracker and commander and launches the pipeline loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Get().Named("service")
	}

	switch {
	case s.bridge == nil:
		return errors.New("service: no vehicle bridge configured")
	case s.frames == nil:
		return errors.New("service: no frame source configured")
	case s.camera == nil:
		return errors.New("service: no camera calibration configured")
	}
	if s.detector == nil {
		s.detector = detect.NewThresholdDetector()
	}

	var err error
	trackerOpts := []track.Option{track.WithLogger(s.log.Named("tracker"))}
	if s.relay != nil {
		relayCtx := ctx
		trackerOpts = append(trackerOpts, track.WithAnnotationSink(func(f *detect.Frame) {
			s.relay.PublishFrame(relayCtx, f)
		}))
	}
	s.tracker, err = track.New(s.detector, s.camera, trackerOpts...)
	if err != nil {
		return err
	}

	s.cmdr, err = commander.New(s.cmdrCfg,
		commander.WithLogger(s.log.Named("commander")),
		commander.WithTransitionHook(func(tr commander.Transition) {
			s.recordTransition(ctx, tr)
		}),
	)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.vehicleLoop(runCtx)
	go s.trackerLoop(runCtx)
	go s.controlLoop(runCtx)

	s.started = true
	s.log.Info(ctx, "landing service started",
		logger.Duration("control_rate", s.controlRate),
		logger.Bool("telemetry_relay", s.relay != nil),
		logger.Bool("flight_log", s.flog != nil),
	)
	return nil
}

// Stop shuts the pipeline down and waits for the loops to drain.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.started = false
	s.log.Info(context.Background(), "landing service stopped")
}

// vehicleLoop caches vehicle state as the bridge publishes it. Single writer
// for the vehicle-state cell.
func (s *Service) vehicleLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case vs, ok := <-s.bridge.Updates():
			if !ok {
				return
			}
			s.vsCell.Publish(vs)
			metrics.RecordVehicleStateUpdate()
		}
	}
}

// trackerLoop processes frames as they arrive. Single writer for the
// observation cell; corrupt frames publish nothing.
func (s *Service) trackerLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-s.frames.Frames():
			if !ok {
				return
			}
			obs, err := s.tracker.Process(ctx, f)
			if err != nil {
				continue
			}
			s.obsCell.Publish(obs)
		}
	}
}

// controlLoop ticks the commander at the configured rate. It only ever reads
// the cells: an observation arriving mid-tick is picked up next tick.
func (s *Service) controlLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.controlRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			start := time.Now()
			obs, _ := s.obsCell.Load()
			vs, _ := s.vsCell.Load()

			cmd := s.cmdr.Tick(ctx, obs, vs, now)
			metrics.RecordTickDuration(time.Since(start).Seconds())

			if cmd == nil {
				continue
			}
			if err := s.bridge.Send(ctx, *cmd); err != nil {
				s.log.Error(ctx, "command dispatch failed", logger.Error(err))
				continue
			}
			metrics.RecordCommandIssued()
		}
	}
}

// recordTransition fans a phase transition out to the in-memory ring, the
// flight log and the telemetry relay.
func (s *Service) recordTransition(ctx context.Context, tr commander.Transition) {
	entry := flightlog.Entry{
		At:     tr.At,
		From:   tr.From.String(),
		To:     tr.To.String(),
		Reason: tr.Reason,
	}

	s.ringMu.Lock()
	if len(s.ring) == transitionRingCapacity {
		s.ring = s.ring[1:]
	}
	s.ring = append(s.ring, entry)
	trCopy := tr
	s.lastTr = &trCopy
	s.ringMu.Unlock()

	if s.flog != nil {
		if err := s.flog.RecordTransition(ctx, tr); err != nil {
			s.log.Error(ctx, "flight log write failed", logger.Error(err))
		}
	}
	s.relay.PublishTransition(ctx, tr)
}

// Status implements api.Dependencies.
func (s *Service) Status(_ context.Context) api.StatusReport {
	st := s.cmdr.State()

	report := api.StatusReport{
		Phase:                st.Phase.String(),
		TimeInPhaseMS:        st.TimeInPhase.Milliseconds(),
		ConsecutiveLossCount: st.ConsecutiveLossCount,
		AbortReason:          st.AbortReason,
		CorruptFrames:        s.tracker.CorruptFrames(),
	}

	if st.LastValid.Valid {
		report.LastObservation = &api.ObservationReport{
			AgeMS:      time.Since(st.LastValid.Timestamp).Milliseconds(),
			OffsetM:    st.LastValid.Position.HorizontalNorm(),
			Confidence: st.LastValid.Confidence,
		}
	}

	s.ringMu.RLock()
	report.LastTransition = s.lastTr
	s.ringMu.RUnlock()

	return report
}

// RecentTransitions implements api.Dependencies, preferring the persistent
// flight log when one is wired.
func (s *Service) RecentTransitions(ctx context.Context, n int) ([]flightlog.Entry, error) {
	if s.flog != nil {
		return s.flog.RecentTransitions(ctx, n)
	}

	s.ringMu.RLock()
	defer s.ringMu.RUnlock()
	if n > len(s.ring) {
		n = len(s.ring)
	}
	out := make([]flightlog.Entry, 0, n)
	for i := len(s.ring) - 1; i >= len(s.ring)-n; i-- {
		out = append(out, s.ring[i])
	}
	return out, nil
}

// Reset implements api.Dependencies: the explicit operator path back to INIT.
func (s *Service) Reset(ctx context.Context) error {
	return s.cmdr.Reset(ctx, time.Now())
}
