package chatws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/loangenie/loangenie/internal/dialogue"
	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/identity"
	"github.com/loangenie/loangenie/internal/store"
)

const testAnonID = "anon_0123456789abcdef0123456789abcdef"

func newTestStream(t *testing.T) (*httptest.Server, *dialogue.Manager) {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})

	sessions := dialogue.NewManager(repo, time.Millisecond, 2*time.Millisecond)
	hub := NewManager()
	sessions.SetNotify(hub.Publish)

	handler := identity.Middleware(repo, true)(NewHandler(sessions, hub))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv, sessions
}

func dialStream(ctx context.Context, t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Cookie", identity.AnonCookieName+"="+testAnonID)

	conn, _, err := websocket.Dial(ctx, srv.URL+"?session_id="+sessionID, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		t.Fatalf("Failed to dial chat stream: %v", err)
	}
	return conn
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) dialogue.Event {
	t.Helper()

	var event dialogue.Event
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		t.Fatalf("Failed to read stream event: %v", err)
	}
	return event
}

func TestStream_ReplayAndLiveEvents(t *testing.T) {
	srv, sessions := newTestStream(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := sessions.StartSession(ctx, testAnonID, "")
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	conn := dialStream(ctx, t, srv, snap.SessionID)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	// The greeting is replayed on connect.
	event := readEvent(ctx, t, conn)
	if event.Type != "message" || event.Message == nil {
		t.Fatalf("Expected replayed message event, got %+v", event)
	}
	if event.Message.Sender != domain.SenderSystem {
		t.Errorf("Expected system greeting, got sender %q", event.Message.Sender)
	}

	// A submitted turn arrives live: first the user echo, then the reply.
	// Events queued before the connection registered may still trickle in,
	// so skip system messages until the echo shows up.
	if err := sessions.SubmitTurn(ctx, snap.SessionID, testAnonID, "200000"); err != nil {
		t.Fatalf("Failed to submit turn: %v", err)
	}

	for {
		event = readEvent(ctx, t, conn)
		if event.Message != nil && event.Message.Sender == domain.SenderUser {
			break
		}
	}
	if event.Message.Text != "200000" {
		t.Fatalf("Expected user echo, got %+v", event)
	}

	event = readEvent(ctx, t, conn)
	if event.Message == nil || event.Message.Sender != domain.SenderSystem {
		t.Fatalf("Expected engine reply, got %+v", event)
	}
	if event.Stage != "get_tenure" {
		t.Errorf("Expected stage get_tenure on reply, got %q", event.Stage)
	}
}

func TestStream_ResetEvent(t *testing.T) {
	srv, sessions := newTestStream(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := sessions.StartSession(ctx, testAnonID, "")
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	conn := dialStream(ctx, t, srv, snap.SessionID)
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	readEvent(ctx, t, conn) // replayed greeting

	if _, err := sessions.ResetSession(ctx, snap.SessionID, testAnonID); err != nil {
		t.Fatalf("Failed to reset session: %v", err)
	}

	// Skip any message events queued before the reset.
	var event dialogue.Event
	for {
		event = readEvent(ctx, t, conn)
		if event.Type != "message" {
			break
		}
	}
	if event.Type != "reset" {
		t.Fatalf("Expected reset event, got %+v", event)
	}
	event = readEvent(ctx, t, conn)
	if event.Type != "message" || event.Message == nil || event.Message.Sender != domain.SenderSystem {
		t.Fatalf("Expected fresh greeting after reset, got %+v", event)
	}
}

func TestStream_UnknownSessionRejected(t *testing.T) {
	srv, _ := newTestStream(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Cookie", identity.AnonCookieName+"="+testAnonID)

	//nolint:bodyclose // Dial closes the handshake response body on error.
	_, _, err := websocket.Dial(ctx, srv.URL+"?session_id=nope", &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err == nil {
		t.Fatal("Expected dial to fail for unknown session")
	}
}
