package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/argus-dev/argus/internal/ingress"
)

// handleEvent decodes a POST /api/v1/events body into an
// ingress.Event and submits it to the scheduler's inbox. It never
// touches internal/store itself (§4.7) — validation and enqueueing
// both happen inside ingress.Surface.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev ingress.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.scheduler.Surface().Submit(r.Context(), ev)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, ingress.ErrMissingSessionID), errors.Is(err, ingress.ErrMissingProjectPath):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingress.ErrUnsupportedProtocolVersion):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// client disconnected before the inbox had room
	default:
		s.log.Warnf("submitting event: %v", err)
		writeError(w, http.StatusServiceUnavailable, "inbox full")
	}
}

// handleCommand decodes a POST /api/v1/commands body into an
// ingress.Command. Commands never cause Argus to shell out or touch
// the filesystem — they're reported to the scheduler, which only
// logs them (§4.7).
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd ingress.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.scheduler.Surface().SubmitCommand(r.Context(), cmd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
