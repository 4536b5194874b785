package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Get(r.Context())
	if err != nil {
		s.log.WithError(err).Error("stats lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to load discovery stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			respondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
		limit = parsed
	}

	runs, err := s.runs.ListRecent(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("run listing failed")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := s.runs.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.log.WithError(err).Error("run lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

type resetRequest struct {
	// SessionIDs selects the sessions to reset. Empty means every failed
	// and needs_review session.
	SessionIDs []string `json:"sessionIds"`
}

type resetResponse struct {
	Reset int64 `json:"reset"`
}

func (s *Server) handleResetSessions(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reset, err := s.sessions.ResetForRetry(r.Context(), req.SessionIDs)
	if err != nil {
		s.log.WithError(err).Error("session reset failed")
		respondError(w, http.StatusInternalServerError, "failed to reset sessions")
		return
	}

	s.log.WithField("reset", reset).Info("sessions reset for retry")
	respondJSON(w, http.StatusOK, resetResponse{Reset: reset})
}

func (s *Server) handleSkipSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.sessions.MarkSkipped(r.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, storage.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, storage.ErrIllegalTransition):
			respondError(w, http.StatusConflict, "only pending sessions can be skipped")
		default:
			s.log.WithError(err).Error("session skip failed")
			respondError(w, http.StatusInternalServerError, "failed to skip session")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
}
