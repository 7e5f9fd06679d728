package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kenanunal/lander/internal/config"
	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/internal/simflight"
	"github.com/kenanunal/lander/pkg/logger"
)

// Bench scene defaults: a VGA nadir camera over a 0.5 m target.
const (
	defaultAltitude = 10.0
	defaultOffset   = 3.0
	defaultDuration = 2 * time.Minute
	defaultFPS      = 20
)

func main() {
	var (
		altitude = flag.Float64("alt", defaultAltitude, "Start altitude in meters")
		offset   = flag.Float64("offset", defaultOffset, "Start horizontal offset from the target in meters")
		duration = flag.Duration("duration", defaultDuration, "Mission time limit")
		fps      = flag.Int("fps", defaultFPS, "Synthetic camera frame rate")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Reuse the shipped commander defaults so the bench flies the same
	// thresholds as a default deployment.
	defaults := config.New()

	report, err := simflight.Run(context.Background(), simflight.Config{
		Duration:    *duration,
		ControlRate: time.Second / time.Duration(defaults.ControlRateHz),
		FramePeriod: time.Second / time.Duration(*fps),
		Intrinsics: geometry.Intrinsics{
			Fx: 420, Fy: 420, Cx: 320, Cy: 240, Width: 640, Height: 480,
		},
		TargetRadius: 0.5,
		Start:        geometry.Vec3{X: *offset, Z: -*altitude},
		Commander:    defaults.Commander,
	})
	if err != nil {
		os.Stderr.WriteString("bench mission failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Println("mission transitions:")
	for i := len(report.Transitions) - 1; i >= 0; i-- {
		tr := report.Transitions[i]
		fmt.Printf("  %s  %s --> %s  (%s)\n", tr.At.Format(time.RFC3339Nano), tr.From, tr.To, tr.Reason)
	}
	fmt.Printf("final phase: %s\n", report.FinalPhase)

	if !report.Landed {
		os.Exit(1)
	}
}
