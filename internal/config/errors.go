package config

import "errors"

// Sentinel error kinds for this package, matchable with errors.Is.
var (
	// ErrInvalidConfig marks configuration that parsed but cannot run the
	// service, such as a zero control rate.
	ErrInvalidConfig = errors.New("invalid service config")

	// ErrLoadConfig marks a failure in the file or environment layers.
	ErrLoadConfig = errors.New("load service config failed")
)
