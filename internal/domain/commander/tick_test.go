package commander_test

import (
	"testing"
	"time"

	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/internal/domain/track"
	. "github.com/smartystreets/goconvey/convey"
)

const tickPeriod = 100 * time.Millisecond

func testConfig() commander.Config {
	return commander.Config{
		AcquireConfidence:  0.7,
		ApproachTolerance:  0.30,
		SafetyTolerance:    0.80,
		FinalTolerance:     0.15,
		ApproachStaleness:  1 * time.Second,
		DescendStaleness:   500 * time.Millisecond,
		HardStaleness:      5 * time.Second,
		VehicleStaleness:   2 * time.Second,
		Dwell:              2 * time.Second,
		DescentIncrement:   0.25,
		MinLandingAltitude: 0.5,
		ApproachGain:       0.8,
		MaxLateralSpeed:    1.5,
	}
}

func readyVehicle(now time.Time, altitude float64) commander.VehicleState {
	return commander.VehicleState{
		Timestamp: now,
		Armed:     true,
		Mode:      commander.ModeGuided,
		Position:  geometry.Vec3{Z: -altitude},
	}
}

func observation(now time.Time, offsetX, depth, confidence float64) track.Observation {
	return track.Observation{
		Timestamp:  now,
		Position:   geometry.Vec3{X: offsetX, Z: depth},
		Confidence: confidence,
		Valid:      true,
	}
}

func TestInitAndSearch(t *testing.T) {
	cfg := testConfig()
	now := time.Now()

	Convey("Given a commander in INIT", t, func() {
		st := commander.State{Phase: commander.PhaseInit}

		Convey("When vehicle telemetry is missing", func() {
			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, commander.VehicleState{}, now)

			Convey("Then it stays in INIT indefinitely with no command", func() {
				So(next.Phase, ShouldEqual, commander.PhaseInit)
				So(cmd, ShouldBeNil)
				So(tr, ShouldBeNil)
			})
		})

		Convey("When the vehicle is armed but not in a guided mode", func() {
			vs := readyVehicle(now, 10)
			vs.Mode = commander.ModePosHold
			next, _, tr := commander.Step(cfg, st, track.Observation{}, vs, now)

			Convey("Then it stays in INIT", func() {
				So(next.Phase, ShouldEqual, commander.PhaseInit)
				So(tr, ShouldBeNil)
			})
		})

		Convey("When the vehicle is armed, guided and fresh", func() {
			next, _, tr := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 10), now)

			Convey("Then it enters SEARCH", func() {
				So(next.Phase, ShouldEqual, commander.PhaseSearch)
				So(tr, ShouldNotBeNil)
				So(tr.To, ShouldEqual, commander.PhaseSearch)
			})

			Convey("And re-delivering the same vehicle state causes no further transition", func() {
				again, cmd, tr2 := commander.Step(cfg, next, track.Observation{}, readyVehicle(now, 10), now.Add(tickPeriod))
				So(again.Phase, ShouldEqual, commander.PhaseSearch)
				So(tr2, ShouldBeNil)
				So(cmd, ShouldNotBeNil)
				So(cmd.Velocity, ShouldNotBeNil)
				So(cmd.Velocity.Norm(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a commander in SEARCH", t, func() {
		st := commander.State{Phase: commander.PhaseSearch}

		Convey("When a confident observation arrives", func() {
			next, _, tr := commander.Step(cfg, st, observation(now, 1.0, 10, 0.9), readyVehicle(now, 10), now)

			Convey("Then it acquires the target and enters APPROACH", func() {
				So(next.Phase, ShouldEqual, commander.PhaseApproach)
				So(tr.Reason, ShouldEqual, "target acquired")
			})
		})

		Convey("When observations stay below the acquisition confidence", func() {
			next, cmd, tr := commander.Step(cfg, st, observation(now, 1.0, 10, 0.4), readyVehicle(now, 10), now)

			Convey("Then it keeps holding in SEARCH", func() {
				So(next.Phase, ShouldEqual, commander.PhaseSearch)
				So(tr, ShouldBeNil)
				So(cmd.Velocity, ShouldNotBeNil)
			})
		})
	})
}

func TestApproach(t *testing.T) {
	cfg := testConfig()

	Convey("Given a commander in APPROACH", t, func() {
		start := time.Now()

		Convey("When centered observations persist for the dwell duration", func() {
			st := commander.State{Phase: commander.PhaseApproach}
			now := start
			var tr *commander.Transition
			var cmd *commander.Command

			// Sustained zero-offset, high-confidence observations.
			for i := 0; i < 30 && st.Phase == commander.PhaseApproach; i++ {
				now = now.Add(tickPeriod)
				st, cmd, tr = commander.Step(cfg, st, observation(now, 0, 10, 0.9), readyVehicle(now, 10), now)
			}

			Convey("Then it eventually transitions to DESCEND", func() {
				So(st.Phase, ShouldEqual, commander.PhaseDescend)
				So(tr, ShouldNotBeNil)
				So(tr.To, ShouldEqual, commander.PhaseDescend)
			})

			Convey("And the first descent setpoint lowers altitude by exactly one increment", func() {
				So(st.Phase, ShouldEqual, commander.PhaseDescend)
				So(cmd, ShouldNotBeNil)
				So(cmd.Position, ShouldNotBeNil)
				// Vehicle at Z=-10; one increment down is -9.75.
				So(cmd.Position.Z, ShouldAlmostEqual, -10+cfg.DescentIncrement, 1e-9)
			})
		})

		Convey("When the offset keeps leaving tolerance", func() {
			st := commander.State{Phase: commander.PhaseApproach}
			now := start
			for i := 0; i < 30; i++ {
				now = now.Add(tickPeriod)
				// Alternate inside and outside the approach tolerance.
				off := 0.0
				if i%2 == 0 {
					off = cfg.ApproachTolerance * 2
				}
				st, _, _ = commander.Step(cfg, st, observation(now, off, 10, 0.9), readyVehicle(now, 10), now)
			}

			Convey("Then the dwell debounce keeps it in APPROACH", func() {
				So(st.Phase, ShouldEqual, commander.PhaseApproach)
			})
		})

		Convey("When the observation goes stale", func() {
			stale := observation(start, 0, 10, 0.9)
			st := commander.State{Phase: commander.PhaseApproach, LastValid: stale}
			now := start.Add(cfg.ApproachStaleness + tickPeriod)

			next, _, tr := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 10), now)

			Convey("Then it falls back to SEARCH within one tick and counts the loss", func() {
				So(next.Phase, ShouldEqual, commander.PhaseSearch)
				So(tr, ShouldNotBeNil)
				So(next.ConsecutiveLossCount, ShouldEqual, 1)
			})
		})

		Convey("When staleness and a completed dwell coincide", func() {
			stale := observation(start, 0, 10, 0.9)
			st := commander.State{
				Phase:       commander.PhaseApproach,
				LastValid:   stale,
				CenteredFor: cfg.Dwell * 2,
			}
			now := start.Add(cfg.ApproachStaleness + tickPeriod)

			next, _, _ := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 10), now)

			Convey("Then the safety transition wins over the progress transition", func() {
				So(next.Phase, ShouldEqual, commander.PhaseSearch)
			})
		})

		Convey("When off-center, the lateral setpoint steers toward the target", func() {
			st := commander.State{Phase: commander.PhaseApproach}
			now := start.Add(tickPeriod)
			next, cmd, _ := commander.Step(cfg, st, observation(now, 1.0, 10, 0.9), readyVehicle(now, 10), now)

			So(next.Phase, ShouldEqual, commander.PhaseApproach)
			So(cmd, ShouldNotBeNil)
			So(cmd.Velocity, ShouldNotBeNil)
			So(cmd.Velocity.X, ShouldBeGreaterThan, 0)
			So(cmd.Velocity.Z, ShouldEqual, 0)
		})
	})
}

func TestDescend(t *testing.T) {
	cfg := testConfig()

	Convey("Given a commander in DESCEND", t, func() {
		start := time.Now()

		Convey("When centered observations continue", func() {
			st := commander.State{Phase: commander.PhaseDescend, DescentFloorZ: -10}
			now := start
			altitude := 10.0
			var prevZ float64 = -1e9

			Convey("Then altitude setpoints never increase", func() {
				for i := 0; i < 20; i++ {
					now = now.Add(tickPeriod)
					vs := readyVehicle(now, altitude)
					var cmd *commander.Command
					st, cmd, _ = commander.Step(cfg, st, observation(now, 0.1, altitude, 0.9), vs, now)
					if st.Phase != commander.PhaseDescend {
						break
					}
					So(cmd, ShouldNotBeNil)
					So(cmd.Position, ShouldNotBeNil)
					So(cmd.Position.Z, ShouldBeGreaterThanOrEqualTo, prevZ)
					prevZ = cmd.Position.Z
					// Vehicle tracks the setpoint between ticks.
					altitude = -cmd.Position.Z
				}
			})
		})

		Convey("When the offset exceeds the safety tolerance", func() {
			now := start.Add(tickPeriod)
			st := commander.State{
				Phase:     commander.PhaseDescend,
				LastValid: observation(now, cfg.SafetyTolerance*2, 10, 0.9),
			}

			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 10), now)

			Convey("Then it aborts the descent back to APPROACH with no altitude change", func() {
				So(next.Phase, ShouldEqual, commander.PhaseApproach)
				So(tr, ShouldNotBeNil)
				So(cmd, ShouldBeNil)
			})
		})

		Convey("When the observation goes stale mid-descent", func() {
			stale := observation(start, 0, 10, 0.9)
			st := commander.State{Phase: commander.PhaseDescend, LastValid: stale}
			now := start.Add(cfg.DescendStaleness + tickPeriod)

			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 10), now)

			Convey("Then it freezes into HOLD within one tick", func() {
				So(next.Phase, ShouldEqual, commander.PhaseHold)
				So(tr, ShouldNotBeNil)
				So(cmd, ShouldNotBeNil)
				So(cmd.Velocity.Norm(), ShouldEqual, 0)
			})
		})

		Convey("When minimum altitude is reached while centered", func() {
			now := start.Add(tickPeriod)
			st := commander.State{
				Phase:     commander.PhaseDescend,
				LastValid: observation(now, 0.05, 0.4, 0.9),
			}

			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 0.4), now)

			Convey("Then it enters LAND and requests the land mode", func() {
				So(next.Phase, ShouldEqual, commander.PhaseLand)
				So(tr, ShouldNotBeNil)
				So(cmd, ShouldNotBeNil)
				So(cmd.ModeRequest, ShouldEqual, commander.ModeLand)
			})
		})

		Convey("When the vehicle disarms mid-descent", func() {
			now := start.Add(tickPeriod)
			st := commander.State{
				Phase:     commander.PhaseDescend,
				LastValid: observation(now, 0, 10, 0.9),
			}
			vs := readyVehicle(now, 10)
			vs.Armed = false

			next, _, tr := commander.Step(cfg, st, track.Observation{}, vs, now)

			Convey("Then it aborts immediately", func() {
				So(next.Phase, ShouldEqual, commander.PhaseAbort)
				So(tr, ShouldNotBeNil)
				So(next.AbortReason, ShouldContainSubstring, "disarmed")
			})

			Convey("And no setpoints follow in ABORT", func() {
				later := now.Add(tickPeriod)
				again, cmd, tr2 := commander.Step(cfg, next, observation(later, 0, 10, 0.9), readyVehicle(later, 10), later)
				So(again.Phase, ShouldEqual, commander.PhaseAbort)
				So(cmd, ShouldBeNil)
				So(tr2, ShouldBeNil)
			})
		})
	})
}

func TestHoldAndLand(t *testing.T) {
	cfg := testConfig()

	Convey("Given a commander in HOLD", t, func() {
		start := time.Now()

		Convey("When the observation recovers", func() {
			now := start.Add(tickPeriod)
			st := commander.State{Phase: commander.PhaseHold}

			next, _, tr := commander.Step(cfg, st, observation(now, 0.2, 5, 0.9), readyVehicle(now, 5), now)

			Convey("Then it re-evaluates the offset back in APPROACH", func() {
				So(next.Phase, ShouldEqual, commander.PhaseApproach)
				So(tr.Reason, ShouldEqual, "observation recovered")
			})
		})

		Convey("When staleness exceeds the hard limit", func() {
			stale := observation(start, 0, 5, 0.9)
			st := commander.State{Phase: commander.PhaseHold, LastValid: stale}
			now := start.Add(cfg.HardStaleness + tickPeriod)

			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 5), now)

			Convey("Then it aborts with a return-to-launch request", func() {
				So(next.Phase, ShouldEqual, commander.PhaseAbort)
				So(tr, ShouldNotBeNil)
				So(cmd, ShouldNotBeNil)
				So(cmd.ModeRequest, ShouldEqual, commander.ModeRTL)
			})
		})

		Convey("When the observation is merely stale, not hard-expired", func() {
			stale := observation(start, 0, 5, 0.9)
			st := commander.State{Phase: commander.PhaseHold, LastValid: stale}
			now := start.Add(cfg.DescendStaleness * 2)

			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, readyVehicle(now, 5), now)

			Convey("Then it keeps holding", func() {
				So(next.Phase, ShouldEqual, commander.PhaseHold)
				So(tr, ShouldBeNil)
				So(cmd.Velocity.Norm(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a commander in LAND", t, func() {
		now := time.Now()
		st := commander.State{Phase: commander.PhaseLand}

		Convey("When the vehicle reports disarmed", func() {
			vs := readyVehicle(now, 0)
			vs.Armed = false
			vs.Mode = commander.ModeLand

			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, vs, now)

			Convey("Then the mission ends in LANDED, not ABORT", func() {
				So(next.Phase, ShouldEqual, commander.PhaseLanded)
				So(tr, ShouldNotBeNil)
				So(cmd, ShouldBeNil)
			})
		})

		Convey("When the vehicle is still armed and landing", func() {
			vs := readyVehicle(now, 0.2)
			vs.Mode = commander.ModeLand

			next, cmd, tr := commander.Step(cfg, st, track.Observation{}, vs, now)

			Convey("Then the autopilot owns the flare and no setpoints are issued", func() {
				So(next.Phase, ShouldEqual, commander.PhaseLand)
				So(cmd, ShouldBeNil)
				So(tr, ShouldBeNil)
			})
		})
	})
}

func TestExternalOverrideAndTelemetryLoss(t *testing.T) {
	cfg := testConfig()
	now := time.Now()

	Convey("Given an airborne commander", t, func() {
		for _, phase := range []commander.Phase{
			commander.PhaseSearch,
			commander.PhaseApproach,
			commander.PhaseDescend,
			commander.PhaseHold,
		} {
			Convey("When the operator switches out of guided mode during "+phase.String(), func() {
				st := commander.State{Phase: phase, LastValid: observation(now, 0, 10, 0.9)}
				vs := readyVehicle(now, 10)
				vs.Mode = commander.ModePosHold

				next, cmd, tr := commander.Step(cfg, st, track.Observation{}, vs, now)

				Convey("Then control is relinquished into ABORT with a full stop", func() {
					So(next.Phase, ShouldEqual, commander.PhaseAbort)
					So(tr, ShouldNotBeNil)
					So(cmd, ShouldNotBeNil)
					So(cmd.Velocity, ShouldNotBeNil)
					So(cmd.Velocity.Norm(), ShouldEqual, 0)
					So(cmd.ModeRequest, ShouldBeEmpty)
				})
			})
		}

		Convey("When vehicle telemetry stops entirely", func() {
			st := commander.State{Phase: commander.PhaseDescend, LastValid: observation(now, 0, 10, 0.9)}
			vs := readyVehicle(now.Add(-cfg.VehicleStaleness*2), 10)

			next, cmd, _ := commander.Step(cfg, st, track.Observation{}, vs, now)

			Convey("Then the commander aborts rather than fly blind", func() {
				So(next.Phase, ShouldEqual, commander.PhaseAbort)
				So(cmd.ModeRequest, ShouldEqual, commander.ModeRTL)
			})
		})
	})
}
