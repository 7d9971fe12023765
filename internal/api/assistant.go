package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loangenie/loangenie/internal/dialogue"
)

// AssistantHandler serves the stateless support assistant.
type AssistantHandler struct{}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler() *AssistantHandler {
	return &AssistantHandler{}
}

// RegisterRoutes registers the assistant route.
func (h *AssistantHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/assistant", h.Ask)
}

type assistantRequest struct {
	Message string `json:"message"`
}

// Ask answers a free-text support question with a canned reply.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is empty")
		return
	}

	JSON(w, http.StatusOK, dialogue.Answer(req.Message))
}
