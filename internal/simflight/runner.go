package simflight

import (
	"context"
	"fmt"
	"time"

	"github.com/kenanunal/lander/internal/adapters/flightlog"
	"github.com/kenanunal/lander/internal/adapters/vehicle"
	app "github.com/kenanunal/lander/internal/app"
	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/pkg/logger"
)

// Config parameterizes a bench mission.
type Config struct {
	// Duration bounds the whole mission.
	Duration time.Duration

	// ControlRate is the commander tick period; FramePeriod the synthetic
	// camera period.
	ControlRate time.Duration
	FramePeriod time.Duration

	// Camera and target geometry for the rendered scene.
	Intrinsics   geometry.Intrinsics
	TargetRadius float64

	// Start is the vehicle's initial position (Z down, so -10 is 10 m up).
	Start geometry.Vec3

	// Commander holds the state machine thresholds under test.
	Commander commander.Config
}

// Report summarizes a bench mission.
type Report struct {
	FinalPhase  string
	Landed      bool
	Transitions []flightlog.Entry
}

// frameChan adapts a channel to app.FrameSource.
type frameChan chan *detect.Frame

func (c frameChan) Frames() <-chan *detect.Frame { return c }

// Run flies one mission: the simulated vehicle starts armed in guided mode,
// the scene renders the target at the local origin, and the service runs the
// real tracker and commander in between.
func Run(ctx context.Context, cfg Config) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	cam, err := geometry.NewCamera(cfg.Intrinsics, geometry.Extrinsics{}, cfg.TargetRadius)
	if err != nil {
		return Report{}, fmt.Errorf("scene camera: %w", err)
	}

	sim := vehicle.NewSim(vehicle.WithInitialState(commander.VehicleState{
		Timestamp: time.Now(),
		Armed:     true,
		Mode:      commander.ModeGuided,
		Position:  cfg.Start,
	}))
	scene := NewScene(cfg.Intrinsics, cfg.TargetRadius, geometry.Vec3{})
	frames := make(frameChan, 4)

	svc := app.New(
		app.WithLogger(logger.Get().Named("simflight")),
		app.WithCamera(cam),
		app.WithBridge(sim),
		app.WithFrameSource(frames),
		app.WithCommanderConfig(cfg.Commander),
		app.WithControlRate(cfg.ControlRate),
	)
	if err := svc.Start(ctx); err != nil {
		return Report{}, err
	}
	defer svc.Stop()

	go sim.Run(ctx)

	// Camera loop: render what the vehicle would see right now.
	go func() {
		defer close(frames)
		ticker := time.NewTicker(cfg.FramePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				f := scene.Render(sim.State().Position, now)
				select {
				case frames <- f:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// Wait out the mission or an early touchdown.
	poll := time.NewTicker(cfg.ControlRate)
	defer poll.Stop()
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-poll.C:
			phase := svc.Status(ctx).Phase
			done = phase == commander.PhaseLanded.String() || phase == commander.PhaseAbort.String()
		}
	}

	status := svc.Status(context.Background())
	transitions, err := svc.RecentTransitions(context.Background(), 100)
	if err != nil {
		return Report{}, err
	}
	return Report{
		FinalPhase:  status.Phase,
		Landed:      status.Phase == commander.PhaseLanded.String(),
		Transitions: transitions,
	}, nil
}
