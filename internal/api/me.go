package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loangenie/loangenie/internal/identity"
)

const maxDisplayNameLen = 100

// MeHandler exposes the caller's applicant profile.
type MeHandler struct {
	*Handler
}

// NewMeHandler creates a new profile handler.
func NewMeHandler(base *Handler) *MeHandler {
	return &MeHandler{Handler: base}
}

// RegisterRoutes registers profile routes.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/me", h.GetMe)
	r.Put("/api/me", h.UpdateMe)
}

// GetMe returns the current applicant's profile.
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	if applicantID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	applicant, err := h.repo.GetApplicant(r.Context(), applicantID)
	if err != nil || applicant == nil {
		Error(w, http.StatusUnauthorized, "applicant not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"applicant_id": applicant.ApplicantID,
		"display_name": applicant.DisplayName,
	})
}

type updateMeRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateMe sets the applicant's display name, used to personalize the
// dialogue greeting and the decision letter.
func (h *MeHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	if applicantID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if len(name) > maxDisplayNameLen {
		Error(w, http.StatusBadRequest, "display name too long")
		return
	}

	applicant, err := h.repo.GetApplicant(r.Context(), applicantID)
	if err != nil || applicant == nil {
		Error(w, http.StatusUnauthorized, "applicant not found")
		return
	}

	applicant.DisplayName = name
	if err := h.repo.UpsertApplicant(r.Context(), applicant); err != nil {
		slog.Error("Failed to update applicant", "error", err, "applicant_id", applicantID)
		Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"applicant_id": applicant.ApplicantID,
		"display_name": applicant.DisplayName,
	})
}
