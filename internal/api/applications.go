package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loangenie/loangenie/internal/identity"
	"github.com/loangenie/loangenie/internal/letter"
	"github.com/loangenie/loangenie/internal/store"
)

// ApplicationsHandler serves the applicant's loan application records and
// decision letters.
type ApplicationsHandler struct {
	*Handler
}

// NewApplicationsHandler creates a new applications handler.
func NewApplicationsHandler(base *Handler) *ApplicationsHandler {
	return &ApplicationsHandler{Handler: base}
}

// RegisterRoutes registers application routes.
func (h *ApplicationsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/applications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{applicationID}/letter", h.Letter)
	})
}

// List returns the caller's application records, newest first.
func (h *ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	if applicantID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := h.repo.ListApplications(r.Context(), applicantID)
	if err != nil {
		slog.Error("Failed to list applications", "error", err, "applicant_id", applicantID)
		Error(w, http.StatusInternalServerError, "failed to list applications")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"applications": records,
	})
}

// Letter renders the plain-text approval letter for a finalized record.
func (h *ApplicationsHandler) Letter(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	applicationID := chi.URLParam(r, "applicationID")

	record, err := h.repo.GetApplication(r.Context(), applicationID)
	if err != nil {
		if errors.Is(err, store.ErrApplicationNotFound) {
			Error(w, http.StatusNotFound, "application not found")
			return
		}
		slog.Error("Failed to load application", "error", err, "application_id", applicationID)
		Error(w, http.StatusInternalServerError, "failed to load application")
		return
	}
	if record.ApplicantID != applicantID {
		Error(w, http.StatusNotFound, "application not found")
		return
	}

	applicant, err := identity.CurrentApplicant(r.Context(), h.repo)
	if err != nil {
		slog.Warn("Applicant lookup failed, rendering generic letter", "error", err, "applicant_id", applicantID)
		applicant = nil
	}

	text, err := letter.Render(record, applicant)
	if err != nil {
		if errors.Is(err, letter.ErrNotApproved) {
			Error(w, http.StatusConflict, "application is not approved")
			return
		}
		slog.Error("Failed to render letter", "error", err, "application_id", applicationID)
		Error(w, http.StatusInternalServerError, "failed to render letter")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="Loan_Approval_Letter.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Debug("Failed to write letter response", "error", err)
	}
}
