package commander

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig marks commander configuration the state machine refuses
// to run with.
var ErrInvalidConfig = errors.New("invalid commander config")

// Config holds the deployment parameters of the state machine. There are no
// baked-in flight values: every threshold comes from configuration.
type Config struct {
	// AcquireConfidence is the minimum observation confidence that counts as
	// target acquisition in SEARCH.
	AcquireConfidence float64 `koanf:"acquire_confidence"`

	// Horizontal offset tolerances, meters. Approach gates the APPROACH ->
	// DESCEND transition, Safety aborts a descent, Final gates touchdown.
	ApproachTolerance float64 `koanf:"approach_tolerance_m"`
	SafetyTolerance   float64 `koanf:"safety_tolerance_m"`
	FinalTolerance    float64 `koanf:"final_tolerance_m"`

	// Staleness windows. An observation older than the phase's window is
	// treated as absent. Hard is the HOLD -> ABORT cutoff.
	ApproachStaleness time.Duration `koanf:"approach_staleness"`
	DescendStaleness  time.Duration `koanf:"descend_staleness"`
	HardStaleness     time.Duration `koanf:"hard_staleness"`

	// VehicleStaleness bounds the age of vehicle telemetry before the
	// mission is considered blind.
	VehicleStaleness time.Duration `koanf:"vehicle_staleness"`

	// Dwell is how long the offset must stay within ApproachTolerance
	// before descent begins.
	Dwell time.Duration `koanf:"dwell"`

	// DescentIncrement is the altitude step, meters, commanded per tick in
	// DESCEND.
	DescentIncrement float64 `koanf:"descent_increment_m"`

	// MinLandingAltitude is the height, meters, at which the final land
	// sequence starts.
	MinLandingAltitude float64 `koanf:"min_landing_altitude_m"`

	// ApproachGain converts horizontal offset to lateral velocity in
	// APPROACH; MaxLateralSpeed caps it.
	ApproachGain    float64 `koanf:"approach_gain"`
	MaxLateralSpeed float64 `koanf:"max_lateral_speed_mps"`
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	switch {
	case c.AcquireConfidence <= 0 || c.AcquireConfidence > 1:
		return fmt.Errorf("%w: acquire_confidence must be in (0, 1]", ErrInvalidConfig)
	case c.FinalTolerance <= 0:
		return fmt.Errorf("%w: final tolerance must be positive", ErrInvalidConfig)
	case c.ApproachTolerance < c.FinalTolerance:
		return fmt.Errorf("%w: approach tolerance must be at least the final tolerance", ErrInvalidConfig)
	case c.SafetyTolerance <= c.ApproachTolerance:
		return fmt.Errorf("%w: safety tolerance must exceed the approach tolerance", ErrInvalidConfig)
	case c.ApproachStaleness <= 0 || c.DescendStaleness <= 0:
		return fmt.Errorf("%w: staleness windows must be positive", ErrInvalidConfig)
	case c.HardStaleness <= c.ApproachStaleness:
		return fmt.Errorf("%w: hard staleness must exceed the approach window", ErrInvalidConfig)
	case c.VehicleStaleness <= 0:
		return fmt.Errorf("%w: vehicle staleness must be positive", ErrInvalidConfig)
	case c.Dwell <= 0:
		return fmt.Errorf("%w: dwell must be positive", ErrInvalidConfig)
	case c.DescentIncrement <= 0:
		return fmt.Errorf("%w: descent increment must be positive", ErrInvalidConfig)
	case c.MinLandingAltitude <= 0:
		return fmt.Errorf("%w: minimum landing altitude must be positive", ErrInvalidConfig)
	case c.ApproachGain <= 0 || c.MaxLateralSpeed <= 0:
		return fmt.Errorf("%w: approach gain and lateral speed cap must be positive", ErrInvalidConfig)
	}
	return nil
}
