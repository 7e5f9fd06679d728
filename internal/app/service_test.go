package service_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kenanunal/lander/internal/adapters/vehicle"
	app "github.com/kenanunal/lander/internal/app"
	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// chanFrames adapts a plain channel to the FrameSource interface.
type chanFrames struct {
	ch chan *detect.Frame
}

func (c *chanFrames) Frames() <-chan *detect.Frame { return c.ch }

func testCamera() *geometry.Camera {
	cam, err := geometry.NewCamera(geometry.Intrinsics{
		Fx: 420, Fy: 420,
		Cx: 320, Cy: 240,
		Width: 640, Height: 480,
	}, geometry.Extrinsics{}, 0.5)
	if err != nil {
		panic(err)
	}
	return cam
}

func fastCommanderConfig() commander.Config {
	return commander.Config{
		AcquireConfidence:  0.5,
		ApproachTolerance:  0.30,
		SafetyTolerance:    0.80,
		FinalTolerance:     0.15,
		ApproachStaleness:  time.Second,
		DescendStaleness:   500 * time.Millisecond,
		HardStaleness:      5 * time.Second,
		VehicleStaleness:   2 * time.Second,
		Dwell:              50 * time.Millisecond,
		DescentIncrement:   0.25,
		MinLandingAltitude: 0.5,
		ApproachGain:       0.8,
		MaxLateralSpeed:    1.5,
	}
}

// centeredFrame renders the target dead center with a healthy apparent size.
func centeredFrame(at time.Time) *detect.Frame {
	f := &detect.Frame{
		ID:        "t",
		Timestamp: at,
		Width:     640,
		Height:    480,
		Pixels:    make([]byte, 640*480),
	}
	for y := 228; y <= 252; y++ {
		for x := 308; x <= 332; x++ {
			f.Pixels[y*f.Width+x] = 250
		}
	}
	return f
}

func TestServiceStartValidation(t *testing.T) {
	Convey("Given service construction", t, func() {
		ctx := context.Background()
		frames := &chanFrames{ch: make(chan *detect.Frame)}
		bridge := vehicle.NewSim()

		Convey("Start fails without a vehicle bridge", func() {
			svc := app.New(
				app.WithFrameSource(frames),
				app.WithCamera(testCamera()),
				app.WithCommanderConfig(fastCommanderConfig()),
			)
			So(svc.Start(ctx), ShouldNotBeNil)
		})

		Convey("Start fails without a frame source", func() {
			svc := app.New(
				app.WithBridge(bridge),
				app.WithCamera(testCamera()),
				app.WithCommanderConfig(fastCommanderConfig()),
			)
			So(svc.Start(ctx), ShouldNotBeNil)
		})

		Convey("Start fails without camera calibration", func() {
			svc := app.New(
				app.WithBridge(bridge),
				app.WithFrameSource(frames),
				app.WithCommanderConfig(fastCommanderConfig()),
			)
			So(svc.Start(ctx), ShouldNotBeNil)
		})

		Convey("Start fails with inconsistent commander thresholds", func() {
			cfg := fastCommanderConfig()
			cfg.Dwell = 0
			svc := app.New(
				app.WithBridge(bridge),
				app.WithFrameSource(frames),
				app.WithCamera(testCamera()),
				app.WithCommanderConfig(cfg),
			)
			So(svc.Start(ctx), ShouldWrap, commander.ErrInvalidConfig)
		})
	})
}

func TestServicePipeline(t *testing.T) {
	Convey("Given a running service over a simulated vehicle", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		frames := &chanFrames{ch: make(chan *detect.Frame, 4)}
		sim := vehicle.NewSim(vehicle.WithUpdateRate(5 * time.Millisecond))

		svc := app.New(
			app.WithBridge(sim),
			app.WithFrameSource(frames),
			app.WithCamera(testCamera()),
			app.WithCommanderConfig(fastCommanderConfig()),
			app.WithControlRate(5*time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		go sim.Run(ctx)

		// Feed centered target frames until the test ends.
		framesDone := make(chan struct{})
		go func() {
			defer close(framesDone)
			ticker := time.NewTicker(5 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case at := <-ticker.C:
					select {
					case frames.ch <- centeredFrame(at):
					default:
					}
				}
			}
		}()

		Convey("The mission progresses to a descent", func() {
			deadline := time.After(5 * time.Second)
			phase := ""
			for phase != "DESCEND" && phase != "LAND" && phase != "LANDED" {
				select {
				case <-deadline:
					So("timed out waiting for descent, last phase "+phase, ShouldBeEmpty)
					return
				case <-time.After(10 * time.Millisecond):
					phase = svc.Status(ctx).Phase
				}
			}

			st := svc.Status(ctx)
			So(st.LastObservation, ShouldNotBeNil)
			So(st.LastObservation.Confidence, ShouldBeGreaterThan, 0.5)

			Convey("And the transition history covers the whole path", func() {
				entries, err := svc.RecentTransitions(ctx, 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldBeGreaterThanOrEqualTo, 3)
				// Newest first: the descent is at the head.
				So(entries[len(entries)-1].To, ShouldEqual, "SEARCH")
			})

			Convey("And a reset mid-mission is refused", func() {
				if p := svc.Status(ctx).Phase; p == "DESCEND" || p == "LAND" {
					So(svc.Reset(ctx), ShouldWrap, commander.ErrResetRefused)
				}
			})
		})
	})
}
