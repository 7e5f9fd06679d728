// Package track converts image frames into target observations: one
// timestamped, confidence-scored estimate of where the landing target sits
// relative to the vehicle, per processed frame.
package track

import (
	"time"

	"github.com/kenanunal/lander/internal/domain/geometry"
)

// Observation is a single target estimate. It is immutable once published.
// When Valid is false the Position carries no trust and must not be acted on.
type Observation struct {
	Timestamp  time.Time     `json:"timestamp"`
	Position   geometry.Vec3 `json:"position"`
	Confidence float64       `json:"confidence"`
	Valid      bool          `json:"valid"`
}

// Age returns how old the observation is at the given instant.
func (o Observation) Age(now time.Time) time.Duration {
	return now.Sub(o.Timestamp)
}

// Usable reports whether the observation is valid, at least as confident as
// min, and no older than window at the given instant.
func (o Observation) Usable(now time.Time, window time.Duration, min float64) bool {
	return o.Valid && o.Confidence >= min && o.Age(now) <= window
}
