// Package commander drives the vehicle through the landing state machine:
// from search, through approach and descent, to touchdown, or to an abort
// when observations go stale or the operator takes over.
package commander

import "time"

// Phase is a state of the landing state machine.
type Phase int

// Phases, in nominal mission order. Landed and Abort are terminal.
const (
	PhaseInit Phase = iota
	PhaseSearch
	PhaseApproach
	PhaseDescend
	PhaseHold
	PhaseLand
	PhaseLanded
	PhaseAbort
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseSearch:
		return "SEARCH"
	case PhaseApproach:
		return "APPROACH"
	case PhaseDescend:
		return "DESCEND"
	case PhaseHold:
		return "HOLD"
	case PhaseLand:
		return "LAND"
	case PhaseLanded:
		return "LANDED"
	case PhaseAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the phase never transitions on its own.
func (p Phase) Terminal() bool {
	return p == PhaseLanded || p == PhaseAbort
}

// Transition records one phase change with its cause, for logs, telemetry
// and the flight log.
type Transition struct {
	From   Phase     `json:"from"`
	To     Phase     `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}
