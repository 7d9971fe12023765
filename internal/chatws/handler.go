package chatws

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/loangenie/loangenie/internal/dialogue"
	"github.com/loangenie/loangenie/internal/identity"
)

// Handler upgrades chat stream requests and replays then follows a
// session's transcript.
type Handler struct {
	sessions *dialogue.Manager
	manager  *Manager
}

// NewHandler creates a new WebSocket chat stream handler.
func NewHandler(sessions *dialogue.Manager, manager *Manager) *Handler {
	return &Handler{sessions: sessions, manager: manager}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	applicantID := identity.ApplicantIDFromContext(r.Context())
	sessionID := r.URL.Query().Get("session_id")

	// Ownership check before the upgrade; the snapshot also seeds the replay.
	snap, err := h.sessions.Snapshot(sessionID, applicantID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept chat stream", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close chat stream", "error", closeErr, "session_id", sessionID)
		}
	}()

	c := h.manager.Register(sessionID, ws)
	defer h.manager.Unregister(sessionID, ws)

	// Replay the transcript so a reconnecting client catches up before
	// live events arrive.
	for i := range snap.Transcript {
		event := dialogue.Event{
			Type:      "message",
			SessionID: sessionID,
			Stage:     snap.Stage,
			Message:   &snap.Transcript[i],
		}
		if err := c.send(event); err != nil {
			slog.Debug("Chat stream replay failed", "session_id", sessionID, "error", err)
			return
		}
	}

	// Clients never send messages over the stream; turns go through the
	// HTTP API. Block until the peer closes.
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			if !errors.Is(err, io.EOF) && websocket.CloseStatus(err) == -1 {
				slog.Debug("Chat stream read ended", "session_id", sessionID, "error", err)
			}
			return
		}
	}
}
