package commander

import (
	"time"

	"github.com/kenanunal/lander/internal/domain/geometry"
)

// FlightMode is the autopilot flight mode string as reported by the bridge.
type FlightMode string

// Flight modes the commander cares about. Guided mode names differ between
// ArduCopter and PX4.
const (
	ModeGuided   FlightMode = "GUIDED"
	ModeOffboard FlightMode = "OFFBOARD"
	ModePosHold  FlightMode = "POSHOLD"
	ModeLand     FlightMode = "LAND"
	ModeRTL      FlightMode = "RTL"
)

// Guided reports whether the mode accepts external setpoints.
func (m FlightMode) Guided() bool {
	return m == ModeGuided || m == ModeOffboard
}

// VehicleState is the read-only snapshot of the vehicle published by the
// flight controller bridge. Position is in the local frame, Z down.
type VehicleState struct {
	Timestamp time.Time     `json:"timestamp"`
	Armed     bool          `json:"armed"`
	Mode      FlightMode    `json:"mode"`
	Position  geometry.Vec3 `json:"position"`
	Velocity  geometry.Vec3 `json:"velocity"`
}

// Fresh reports whether the snapshot is no older than window at now.
func (s VehicleState) Fresh(now time.Time, window time.Duration) bool {
	return !s.Timestamp.IsZero() && now.Sub(s.Timestamp) <= window
}

// Altitude returns height above the local origin (Z is down).
func (s VehicleState) Altitude() float64 {
	return -s.Position.Z
}

// Command is one guidance command for the vehicle interface: a position or a
// velocity setpoint, optionally with a flight mode request. Commands are
// fire-and-forget and not retained after dispatch.
type Command struct {
	Position    *geometry.Vec3 `json:"position,omitempty"`
	Velocity    *geometry.Vec3 `json:"velocity,omitempty"`
	ModeRequest FlightMode     `json:"mode_request,omitempty"`
}

// holdCommand is a zero-velocity setpoint: stop and hold.
func holdCommand() *Command {
	return &Command{Velocity: &geometry.Vec3{}}
}

// velocityCommand wraps a velocity setpoint.
func velocityCommand(v geometry.Vec3) *Command {
	return &Command{Velocity: &v}
}

// positionCommand wraps a position setpoint.
func positionCommand(p geometry.Vec3) *Command {
	return &Command{Position: &p}
}
