package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kenanunal/lander/internal/adapters/camera"
	"github.com/kenanunal/lander/internal/adapters/flightlog"
	"github.com/kenanunal/lander/internal/adapters/http/api"
	"github.com/kenanunal/lander/internal/adapters/telemetry"
	"github.com/kenanunal/lander/internal/adapters/vehicle"
	app "github.com/kenanunal/lander/internal/app"
	"github.com/kenanunal/lander/internal/config"
	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/internal/domain/geometry"
	"github.com/kenanunal/lander/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Calibration is a hard startup requirement: no camera model, no mission.
	cam, err := geometry.NewCamera(cfg.Camera, cfg.Mount, cfg.TargetRadiusM)
	if err != nil {
		log.Error(ctx, "camera calibration rejected", logger.Error(err))
		return
	}

	frames, err := camera.NewUDPSource(cfg.CameraListenAddr)
	if err != nil {
		log.Error(ctx, "camera source failed", logger.Error(err))
		return
	}

	bridge, err := vehicle.NewUDPBridge(cfg.VehicleListenAddr, cfg.VehicleCommandAddr)
	if err != nil {
		log.Error(ctx, "vehicle bridge failed", logger.Error(err))
		return
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithCamera(cam),
		app.WithFrameSource(frames),
		app.WithBridge(bridge),
		app.WithDetector(detect.NewThresholdDetector(
			detect.WithLuminance(byte(cfg.DetectLuminance)),
			detect.WithMinArea(cfg.DetectMinArea),
		)),
		app.WithCommanderConfig(cfg.Commander),
		app.WithControlRate(time.Second / time.Duration(cfg.ControlRateHz)),
	}

	if cfg.NATSURL != "" {
		relay, err := telemetry.NewRelay(cfg.NATSURL, telemetry.WithSubjectPrefix(cfg.TelemetrySubjectPrefix))
		if err != nil {
			log.Error(ctx, "telemetry relay failed", logger.Error(err))
			return
		}
		defer relay.Close()
		opts = append(opts, app.WithTelemetryRelay(relay))
	}

	if cfg.FlightLogPath != "" {
		flog, err := flightlog.Open(cfg.FlightLogPath)
		if err != nil {
			log.Error(ctx, "flight log failed", logger.Error(err))
			return
		}
		defer flog.Close()
		opts = append(opts, app.WithFlightLog(flog))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Boundary adapters read their sockets on their own loops.
	go frames.Run(ctx)
	go bridge.Run(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP shutdown failed", logger.Error(err))
	}
}
