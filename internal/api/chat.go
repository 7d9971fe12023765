package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loangenie/loangenie/internal/dialogue"
	"github.com/loangenie/loangenie/internal/identity"
)

// ChatHandler handles the conversational loan-application endpoints.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(base *Handler) *ChatHandler {
	return &ChatHandler{Handler: base}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/session", h.StartSession)
		r.Get("/session/{sessionID}", h.GetSession)
		r.Post("/session/{sessionID}/turn", h.SubmitTurn)
		r.Post("/session/{sessionID}/reset", h.ResetSession)
	})
}

type turnRequest struct {
	Message string `json:"message"`
}

// StartSession begins a new loan-application dialogue. A fresh Pending
// application record is created and the greeting transcript returned.
func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	if applicantID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Identity is cosmetic here: a lookup failure downgrades the greeting,
	// it never blocks the application.
	displayName := ""
	applicant, err := identity.CurrentApplicant(r.Context(), h.repo)
	if err != nil {
		slog.Warn("Applicant lookup failed, greeting generically", "error", err, "applicant_id", applicantID)
	} else {
		displayName = applicant.GreetingName()
	}

	snap, err := h.sessions.StartSession(r.Context(), applicantID, displayName)
	if err != nil {
		slog.Error("Failed to start dialogue session", "error", err, "applicant_id", applicantID)
		Error(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	JSON(w, http.StatusCreated, snap)
}

// GetSession returns the session snapshot: stage, transcript and record id.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.sessions.Snapshot(sessionID, applicantID)
	if err != nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	JSON(w, http.StatusOK, snap)
}

// SubmitTurn accepts one user turn. The engine's reply is produced
// asynchronously; clients observe it via the snapshot or the chat stream.
func (h *ChatHandler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.sessions.SubmitTurn(r.Context(), sessionID, applicantID, req.Message)
	switch {
	case err == nil:
		JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, dialogue.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session not found")
	case errors.Is(err, dialogue.ErrEmptyInput):
		Error(w, http.StatusBadRequest, "message is empty")
	case errors.Is(err, dialogue.ErrTurnInFlight):
		Error(w, http.StatusConflict, "turn_in_flight")
	case errors.Is(err, dialogue.ErrSessionClosed):
		Error(w, http.StatusConflict, "session_closed")
	default:
		slog.Error("Failed to submit turn", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to submit turn")
	}
}

// ResetSession abandons the current application and starts a fresh one
// under the same session id. The "Start New Application" action lands here.
func (h *ChatHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.sessions.ResetSession(r.Context(), sessionID, applicantID)
	if err != nil {
		if errors.Is(err, dialogue.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("Failed to reset session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	JSON(w, http.StatusOK, snap)
}
