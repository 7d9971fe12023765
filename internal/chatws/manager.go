// Package chatws pushes dialogue transcript events to WebSocket clients.
package chatws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/loangenie/loangenie/internal/dialogue"
)

const writeTimeout = 5 * time.Second

// client wraps a connection with a write lock; the websocket library
// allows only one concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(event dialogue.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, event)
}

// Manager tracks the active WebSocket connection per dialogue session.
type Manager struct {
	mu     sync.RWMutex
	active map[string]*client
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]*client),
	}
}

// Register adds a connection for a session, replacing any previous one.
func (m *Manager) Register(sessionID string, conn *websocket.Conn) *client {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[sessionID]; ok && existing.conn != conn {
		_ = existing.conn.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	c := &client{conn: conn}
	m.active[sessionID] = c
	slog.Info("Chat stream registered", "session_id", sessionID)
	return c
}

// Unregister removes a connection for a session if it is still current.
func (m *Manager) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[sessionID]; ok && current.conn == conn {
		delete(m.active, sessionID)
		slog.Info("Chat stream unregistered", "session_id", sessionID)
	}
}

// Publish delivers one dialogue event to the session's connection, if any.
// Wired as the dialogue manager's notify sink.
func (m *Manager) Publish(event dialogue.Event) {
	m.mu.RLock()
	c, ok := m.active[event.SessionID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	if err := c.send(event); err != nil {
		slog.Debug("Chat stream write failed", "session_id", event.SessionID, "error", err)
	}
}
