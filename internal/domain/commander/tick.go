package commander

import (
	"math"
	"time"

	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/internal/domain/track"
)

// State is the single mutable entity the commander owns. It is mutated only
// by Step, once per control tick. Every cross-tick memory the state machine
// uses lives here explicitly; there are no hidden timers.
type State struct {
	Phase                Phase             `json:"phase"`
	LastValid            track.Observation `json:"last_valid"`
	TimeInPhase          time.Duration     `json:"time_in_phase"`
	ConsecutiveLossCount int               `json:"consecutive_loss_count"`

	// CenteredFor accumulates how long the horizontal offset has stayed
	// within the approach tolerance (the dwell debounce).
	CenteredFor time.Duration `json:"centered_for"`

	// DescentFloorZ is the last commanded descent setpoint Z (down
	// positive). It only ever grows, which keeps commanded altitude
	// monotonically non-increasing during a descent.
	DescentFloorZ float64 `json:"descent_floor_z"`

	// AbortReason explains a terminal abort for operators.
	AbortReason string `json:"abort_reason,omitempty"`

	phaseEnteredAt time.Time
	lastTick       time.Time
}

// Step advances the state machine by one control tick. It is a pure mapping
// from (state, latest observation, latest vehicle state, now) to the next
// state, at most one guidance command, and the transition taken, if any.
//
// Safety conditions are always evaluated before progress conditions, so a
// tick where both fire resolves toward SEARCH/HOLD/ABORT.
func Step(cfg Config, st State, obs track.Observation, vs VehicleState, now time.Time) (State, *Command, *Transition) {
	var dt time.Duration
	if !st.lastTick.IsZero() {
		dt = now.Sub(st.lastTick)
	}
	st.lastTick = now
	if !st.phaseEnteredAt.IsZero() {
		st.TimeInPhase = now.Sub(st.phaseEnteredAt)
	}

	// Keep the newest trusted observation. An invalid observation carries no
	// position and is never retained.
	if obs.Valid && obs.Timestamp.After(st.LastValid.Timestamp) {
		st.LastValid = obs
	}

	switch st.Phase {
	case PhaseInit:
		return stepInit(cfg, st, vs, now)
	case PhaseSearch:
		return stepSearch(cfg, st, vs, now)
	case PhaseApproach:
		return stepApproach(cfg, st, vs, now, dt)
	case PhaseDescend:
		return stepDescend(cfg, st, vs, now)
	case PhaseHold:
		return stepHold(cfg, st, vs, now)
	case PhaseLand:
		return stepLand(cfg, st, vs, now)
	default:
		// LANDED and ABORT are terminal: no transitions, no commands.
		return st, nil, nil
	}
}

// enter moves the state into a new phase and resets per-phase accounting.
func enter(st State, to Phase, reason string, now time.Time) (State, *Transition) {
	tr := &Transition{From: st.Phase, To: to, Reason: reason, At: now}
	st.Phase = to
	st.phaseEnteredAt = now
	st.TimeInPhase = 0
	st.CenteredFor = 0
	if to == PhaseAbort {
		st.AbortReason = reason
	}
	return st, tr
}

// overridden reports an external takeover: the vehicle disarmed or left a
// guided mode while the commander still held authority.
func overridden(vs VehicleState) (string, bool) {
	if !vs.Armed {
		return "vehicle disarmed externally", true
	}
	if !vs.Mode.Guided() {
		return "vehicle left guided mode: " + string(vs.Mode), true
	}
	return "", false
}

// obsAge returns the age of the last trusted observation, or a very large
// age when none has ever been seen.
func obsAge(st State, now time.Time) time.Duration {
	if st.LastValid.Timestamp.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return now.Sub(st.LastValid.Timestamp)
}

func stepInit(cfg Config, st State, vs VehicleState, now time.Time) (State, *Command, *Transition) {
	// No timeout here: readiness is external. The commander waits for fresh
	// telemetry, an armed vehicle and a guided mode before taking authority.
	if vs.Fresh(now, cfg.VehicleStaleness) && vs.Armed && vs.Mode.Guided() {
		st, tr := enter(st, PhaseSearch, "vehicle ready", now)
		return st, nil, tr
	}
	return st, nil, nil
}

// abortForAnomaly handles the failure conditions shared by every airborne
// phase: lost vehicle telemetry, or an operator override.
func abortForAnomaly(cfg Config, st State, vs VehicleState, now time.Time) (State, *Command, *Transition, bool) {
	if !vs.Fresh(now, cfg.VehicleStaleness) {
		st, tr := enter(st, PhaseAbort, "vehicle telemetry lost", now)
		return st, &Command{ModeRequest: ModeRTL}, tr, true
	}
	if reason, ok := overridden(vs); ok {
		// Never fight a manual takeover: relinquish with a full stop and
		// issue nothing further.
		st, tr := enter(st, PhaseAbort, "external override: "+reason, now)
		return st, holdCommand(), tr, true
	}
	return st, nil, nil, false
}

func stepSearch(cfg Config, st State, vs VehicleState, now time.Time) (State, *Command, *Transition) {
	if st2, cmd, tr, ok := abortForAnomaly(cfg, st, vs, now); ok {
		return st2, cmd, tr
	}

	if st.LastValid.Usable(now, cfg.ApproachStaleness, cfg.AcquireConfidence) {
		st, tr := enter(st, PhaseApproach, "target acquired", now)
		return st, holdCommand(), tr
	}

	// Hold position until the tracker finds something. No timeout: only an
	// operator abort exits a fruitless search.
	return st, holdCommand(), nil
}

func stepApproach(cfg Config, st State, vs VehicleState, now time.Time, dt time.Duration) (State, *Command, *Transition) {
	if st2, cmd, tr, ok := abortForAnomaly(cfg, st, vs, now); ok {
		return st2, cmd, tr
	}

	// Staleness is checked before any progress: losing the target wins over
	// a simultaneously-completed dwell.
	if obsAge(st, now) > cfg.ApproachStaleness {
		st.ConsecutiveLossCount++
		st, tr := enter(st, PhaseSearch, "observation stale, re-acquiring", now)
		return st, holdCommand(), tr
	}

	offset := st.LastValid.Position.HorizontalNorm()
	if offset <= cfg.ApproachTolerance {
		st.CenteredFor += dt
	} else {
		st.CenteredFor = 0
	}

	if st.CenteredFor >= cfg.Dwell {
		st.ConsecutiveLossCount = 0
		st.DescentFloorZ = vs.Position.Z
		st, tr := enter(st, PhaseDescend, "centered within tolerance for dwell", now)
		var cmd *Command
		st, cmd = descendCommand(cfg, st, vs)
		return st, cmd, tr
	}

	// Null the horizontal offset while holding altitude.
	return st, velocityCommand(geometry.Vec3{
		X: clamp(cfg.ApproachGain*st.LastValid.Position.X, cfg.MaxLateralSpeed),
		Y: clamp(cfg.ApproachGain*st.LastValid.Position.Y, cfg.MaxLateralSpeed),
	}), nil
}

func stepDescend(cfg Config, st State, vs VehicleState, now time.Time) (State, *Command, *Transition) {
	if st2, cmd, tr, ok := abortForAnomaly(cfg, st, vs, now); ok {
		return st2, cmd, tr
	}

	// Never keep sinking blind: a stale observation freezes the descent.
	if obsAge(st, now) > cfg.DescendStaleness {
		st, tr := enter(st, PhaseHold, "observation stale during descent", now)
		return st, holdCommand(), tr
	}

	// Off-center beyond the safety bound aborts the descent before any
	// further altitude change.
	offset := st.LastValid.Position.HorizontalNorm()
	if offset > cfg.SafetyTolerance {
		st, tr := enter(st, PhaseApproach, "offset beyond safety bound, re-centering", now)
		return st, nil, tr
	}

	if vs.Altitude() <= cfg.MinLandingAltitude && offset <= cfg.FinalTolerance {
		st, tr := enter(st, PhaseLand, "minimum altitude reached while centered", now)
		return st, &Command{ModeRequest: ModeLand}, tr
	}

	st, cmd := descendCommand(cfg, st, vs)
	return st, cmd, nil
}

// descendCommand issues the next descent setpoint: stay over the target and
// step the altitude down by one increment. The commanded Z never moves back
// up while the descent holds.
func descendCommand(cfg Config, st State, vs VehicleState) (State, *Command) {
	st.DescentFloorZ = math.Max(st.DescentFloorZ, vs.Position.Z+cfg.DescentIncrement)
	return st, positionCommand(geometry.Vec3{
		X: vs.Position.X + st.LastValid.Position.X,
		Y: vs.Position.Y + st.LastValid.Position.Y,
		Z: st.DescentFloorZ,
	})
}

func stepHold(cfg Config, st State, vs VehicleState, now time.Time) (State, *Command, *Transition) {
	if st2, cmd, tr, ok := abortForAnomaly(cfg, st, vs, now); ok {
		return st2, cmd, tr
	}

	age := obsAge(st, now)

	// The hard cutoff is checked before recovery so a tick that satisfies
	// both resolves to the abort.
	if age > cfg.HardStaleness {
		st, tr := enter(st, PhaseAbort, "observation staleness exceeded hard limit", now)
		return st, &Command{ModeRequest: ModeRTL}, tr
	}

	if age <= cfg.DescendStaleness {
		st, tr := enter(st, PhaseApproach, "observation recovered", now)
		return st, holdCommand(), tr
	}

	return st, holdCommand(), nil
}

func stepLand(cfg Config, st State, vs VehicleState, now time.Time) (State, *Command, *Transition) {
	// Disarm here is the expected end of the mission, not an anomaly.
	if vs.Fresh(now, cfg.VehicleStaleness) && !vs.Armed {
		st, tr := enter(st, PhaseLanded, "touchdown confirmed, vehicle disarmed", now)
		return st, nil, tr
	}
	// The autopilot owns the final flare; no further setpoints.
	return st, nil, nil
}

// clamp limits v to [-limit, limit].
func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
