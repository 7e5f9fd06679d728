package vehicle

import (
	"context"
	"sync"
	"time"

	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/internal/domain/geometry"
)

// Default simulation parameters.
const (
	defaultSimRate     = 50 * time.Millisecond
	defaultMaxSpeed    = 2.0 // m/s
	defaultLandRate    = 0.5 // m/s commanded by the autopilot in LAND mode
	positionGain       = 1.0
	stateChannelBuffer = 16
)

// Sim is a kinematic vehicle stand-in implementing Bridge. It integrates
// commanded setpoints, honors mode requests, and disarms itself when LAND
// mode reaches the ground: enough autopilot behavior to fly the full state
// machine in tests and bench runs.
type Sim struct {
	mu       sync.Mutex
	state    commander.VehicleState
	lastCmd  *commander.Command
	maxSpeed float64
	rate     time.Duration

	out  chan commander.VehicleState
	once sync.Once
}

// SimOption configures a Sim.
type SimOption func(*Sim)

// WithInitialState sets the starting vehicle state.
func WithInitialState(st commander.VehicleState) SimOption {
	return func(s *Sim) {
		s.state = st
	}
}

// WithMaxSpeed caps the simulated ground speed.
func WithMaxSpeed(mps float64) SimOption {
	return func(s *Sim) {
		if mps > 0 {
			s.maxSpeed = mps
		}
	}
}

// WithUpdateRate sets the state publication period.
func WithUpdateRate(d time.Duration) SimOption {
	return func(s *Sim) {
		if d > 0 {
			s.rate = d
		}
	}
}

// NewSim creates a simulated vehicle, armed and guided by default so a
// mission can begin immediately.
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{
		state: commander.VehicleState{
			Timestamp: time.Now(),
			Armed:     true,
			Mode:      commander.ModeGuided,
			Position:  geometry.Vec3{Z: -10},
		},
		maxSpeed: defaultMaxSpeed,
		rate:     defaultSimRate,
		out:      make(chan commander.VehicleState, stateChannelBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Updates implements StateSource.
func (s *Sim) Updates() <-chan commander.VehicleState {
	return s.out
}

// Send implements CommandSink: the latest command replaces the previous one.
func (s *Sim) Send(_ context.Context, cmd commander.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cmd
	s.lastCmd = &c
	if cmd.ModeRequest != "" {
		s.state.Mode = cmd.ModeRequest
	}
	return nil
}

// SetMode changes the flight mode, as an operator or autopilot would.
func (s *Sim) SetMode(m commander.FlightMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = m
}

// Disarm cuts the motors, as an operator override would.
func (s *Sim) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Armed = false
}

// Run integrates kinematics and publishes state until ctx is done.
func (s *Sim) Run(ctx context.Context) {
	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()
	defer s.once.Do(func() { close(s.out) })

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.Step(s.rate)
			select {
			case s.out <- st:
			default:
				// Last-value semantics downstream; dropping is fine.
			}
		}
	}
}

// State returns the current vehicle state.
func (s *Sim) State() commander.VehicleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Step advances the simulation by dt and returns the new state. Exported so
// tests can drive the vehicle deterministically without the Run loop.
func (s *Sim) Step(dt time.Duration) commander.VehicleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec := dt.Seconds()
	vel := geometry.Vec3{}

	switch {
	case s.state.Mode == commander.ModeLand:
		vel = geometry.Vec3{Z: defaultLandRate}
	case s.lastCmd == nil:
	case s.lastCmd.Velocity != nil:
		vel = *s.lastCmd.Velocity
	case s.lastCmd.Position != nil:
		err := s.lastCmd.Position.Sub(s.state.Position)
		vel = err.Scale(positionGain)
		if n := vel.Norm(); n > s.maxSpeed {
			vel = vel.Scale(s.maxSpeed / n)
		}
	}

	s.state.Position = s.state.Position.Add(vel.Scale(sec))
	s.state.Velocity = vel

	// Touching the ground in LAND mode ends the flight.
	if s.state.Mode == commander.ModeLand && s.state.Position.Z >= 0 {
		s.state.Position.Z = 0
		s.state.Velocity = geometry.Vec3{}
		s.state.Armed = false
	}

	s.state.Timestamp = time.Now()
	return s.state
}
