package commander

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kenanunal/lander/internal/domain/track"
	"github.com/kenanunal/lander/pkg/logger"
	"github.com/kenanunal/lander/pkg/metrics"
)

// ErrResetRefused is returned when a reset is requested outside a terminal
// phase. The state machine never restarts itself mid-mission.
var ErrResetRefused = errors.New("reset refused: commander not in a terminal phase")

// TransitionHook observes phase transitions as they happen. Hooks must not
// block: they run on the control tick.
type TransitionHook func(Transition)

// Commander owns the landing state machine. All mutation happens inside
// Tick and Reset; everything else is read-only.
type Commander struct {
	mu  sync.Mutex
	cfg Config
	st  State

	log   logger.Logger
	hooks []TransitionHook
}

// Option configures a Commander.
type Option func(*Commander)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Commander) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTransitionHook registers an observer for phase transitions.
func WithTransitionHook(h TransitionHook) Option {
	return func(c *Commander) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// New builds a Commander in INIT. The configuration is validated up front;
// the state machine refuses to exist with inconsistent thresholds.
func New(cfg Config, opts ...Option) (*Commander, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Commander{
		cfg: cfg,
		st:  State{Phase: PhaseInit},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("commander")
	}
	return c, nil
}

// Tick advances the state machine once and returns the guidance command to
// dispatch, if any. A tick always completes; it is never cancelled midway.
func (c *Commander) Tick(ctx context.Context, obs track.Observation, vs VehicleState, now time.Time) *Command {
	c.mu.Lock()
	defer c.mu.Unlock()

	prevLosses := c.st.ConsecutiveLossCount
	next, cmd, tr := Step(c.cfg, c.st, obs, vs, now)
	c.st = next

	if tr != nil {
		c.observe(ctx, *tr)
		if next.ConsecutiveLossCount > prevLosses {
			metrics.RecordTargetLoss()
		}
	}
	return cmd
}

// Reset returns an aborted or landed commander to INIT. It is the only way
// out of ABORT and always requires an explicit external request.
func (c *Commander) Reset(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.st.Phase.Terminal() {
		return fmt.Errorf("%w (current phase %s)", ErrResetRefused, c.st.Phase)
	}

	from := c.st.Phase
	c.st = State{Phase: PhaseInit}
	c.observe(ctx, Transition{From: from, To: PhaseInit, Reason: "external reset", At: now})
	return nil
}

// State returns a copy of the current commander state.
func (c *Commander) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// observe publishes a transition to logs, metrics and registered hooks.
// Callers hold the mutex.
func (c *Commander) observe(ctx context.Context, tr Transition) {
	c.log.Info(ctx, "phase transition",
		logger.String("from", tr.From.String()),
		logger.String("to", tr.To.String()),
		logger.String("reason", tr.Reason),
	)
	metrics.UpdatePhase(int(tr.To))
	metrics.RecordPhaseTransition(tr.To.String())
	for _, h := range c.hooks {
		h(tr)
	}
}
