package api

import (
	"net/http"
	"strconv"
)

// Transitions listing bounds.
const (
	defaultTransitionLimit = 20
	maxTransitionLimit     = 500
)

// StatusHandler serves the current mission status.
type StatusHandler struct {
	deps Dependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps Dependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// HandleStatus handles GET /status.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Status(r.Context()))
}

// TransitionsHandler serves the recorded phase transition history.
type TransitionsHandler struct {
	deps Dependencies
}

// NewTransitionsHandler creates a new transitions handler.
func NewTransitionsHandler(deps Dependencies) *TransitionsHandler {
	return &TransitionsHandler{deps: deps}
}

// HandleTransitions handles GET /transitions?limit=N.
func (h *TransitionsHandler) HandleTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	limit := defaultTransitionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTransitionLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}

	entries, err := h.deps.RecentTransitions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "transitions_unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ResetHandler accepts the explicit operator reset that re-enters INIT.
type ResetHandler struct {
	deps Dependencies
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(deps Dependencies) *ResetHandler {
	return &ResetHandler{deps: deps}
}

// HandleReset handles POST /reset.
func (h *ResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := h.deps.Reset(r.Context()); err != nil {
		writeError(w, http.StatusConflict, "reset_refused", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
