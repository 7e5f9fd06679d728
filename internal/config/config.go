// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and environment layers override them.
// - External errors are wrapped via this package's error helpers.
// - Flight thresholds are deployment parameters: nothing here hard-codes
//   them, and camera calibration has no default at all; it has to be supplied
//   or startup fails.
package config

import (
	"time"

	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/internal/domain/geometry"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP status listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ControlRateHz sets the commander control loop rate.
	ControlRateHz int `koanf:"control_rate_hz"`

	// CameraListenAddr receives frame datagrams from the camera pipeline.
	CameraListenAddr string `koanf:"camera_listen_addr"`

	// VehicleListenAddr receives state datagrams from the flight controller
	// bridge; VehicleCommandAddr is where guidance commands are sent.
	VehicleListenAddr  string `koanf:"vehicle_listen_addr"`
	VehicleCommandAddr string `koanf:"vehicle_command_addr"`

	// NATSURL enables the telemetry relay when non-empty.
	NATSURL string `koanf:"nats_url"`

	// TelemetrySubjectPrefix overrides the relay subject prefix.
	TelemetrySubjectPrefix string `koanf:"telemetry_subject_prefix"`

	// FlightLogPath enables the SQLite flight log when non-empty.
	FlightLogPath string `koanf:"flight_log_path"`

	// Camera intrinsics and mount extrinsics. No defaults: missing
	// calibration is a fatal configuration error.
	Camera geometry.Intrinsics `koanf:"camera"`
	Mount  geometry.Extrinsics `koanf:"mount"`

	// TargetRadiusM is the physical radius of the landing target, meters.
	TargetRadiusM float64 `koanf:"target_radius_m"`

	// Detector tuning for the stock threshold detector.
	DetectLuminance int `koanf:"detect_luminance"`
	DetectMinArea   int `koanf:"detect_min_area"`

	// Commander holds every state machine threshold.
	Commander commander.Config `koanf:"commander"`
}

// New creates a Config with defaults for everything that has a sane one.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8080",
		ControlRateHz:      10,
		CameraListenAddr:   ":14650",
		VehicleListenAddr:  ":14550",
		VehicleCommandAddr: "127.0.0.1:14551",
		DetectLuminance:    200,
		DetectMinArea:      16,
		Commander: commander.Config{
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
		},
	}
}
