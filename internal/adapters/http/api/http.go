// Package api declares the HTTP status surface: where the mission stands,
// why it last changed phase, and the usual health and metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kenanunal/lander/internal/adapters/flightlog"
	"github.com/kenanunal/lander/internal/domain/commander"
)

// Dependencies bundles what the handlers need from the rest of the service.
type Dependencies interface {
	// Status reports the current mission status.
	Status(ctx context.Context) StatusReport

	// RecentTransitions returns the newest n recorded phase transitions.
	RecentTransitions(ctx context.Context, n int) ([]flightlog.Entry, error)

	// Reset returns an aborted or landed commander to INIT.
	Reset(ctx context.Context) error
}

// StatusReport is the read shape for GET /status.
type StatusReport struct {
	Phase                string                  `json:"phase"`
	TimeInPhaseMS        int64                   `json:"time_in_phase_ms"`
	ConsecutiveLossCount int                     `json:"consecutive_loss_count"`
	AbortReason          string                  `json:"abort_reason,omitempty"`
	LastObservation      *ObservationReport      `json:"last_observation,omitempty"`
	LastTransition       *commander.Transition   `json:"last_transition,omitempty"`
	CorruptFrames        int64                   `json:"corrupt_frames"`
}

// ObservationReport summarizes the last trusted observation.
type ObservationReport struct {
	AgeMS      int64   `json:"age_ms"`
	OffsetM    float64 `json:"offset_m"`
	Confidence float64 `json:"confidence"`
}

// Server wires the HTTP routes for the status API.
type Server struct {
	status      *StatusHandler
	transitions *TransitionsHandler
	reset       *ResetHandler
	health      *HealthHandler
}

// NewServer creates an API server over the given dependencies.
func NewServer(deps Dependencies) *Server {
	return &Server{
		status:      NewStatusHandler(deps),
		transitions: NewTransitionsHandler(deps),
		reset:       NewResetHandler(deps),
		health:      NewHealthHandler(),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.status.HandleStatus, "status"))
	mux.HandleFunc("/transitions", MetricsMiddleware(s.transitions.HandleTransitions, "transitions"))
	mux.HandleFunc("/reset", MetricsMiddleware(s.reset.HandleReset, "reset"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
