package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loangenie/loangenie/internal/dialogue"
	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/identity"
	"github.com/loangenie/loangenie/internal/store"
)

const (
	testAnonID     = "anon_0123456789abcdef0123456789abcdef"
	otherAnonID    = "anon_fedcba9876543210fedcba9876543210"
	invalidAnonID  = "not-an-anon-id"
	settleDeadline = 2 * time.Second
	settleInterval = 2 * time.Millisecond
)

type testEnv struct {
	router   chi.Router
	repo     store.Repository
	sessions *dialogue.Manager
}

func newTestEnv(t *testing.T) *testEnv {
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

	base := NewHandler(repo, sessions)

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	NewChatHandler(base).RegisterRoutes(r)
	NewApplicationsHandler(base).RegisterRoutes(r)
	NewAssistantHandler().RegisterRoutes(r)
	NewMeHandler(base).RegisterRoutes(r)

	return &testEnv{router: r, repo: repo, sessions: sessions}
}

// do performs a request as the applicant identified by anonID.
func (e *testEnv) do(t *testing.T, method, path, anonID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if anonID != "" {
		req.AddCookie(&http.Cookie{Name: identity.AnonCookieName, Value: anonID})
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) dialogue.Snapshot {
	t.Helper()

	var snap dialogue.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	return snap
}

// settle polls the session snapshot until no reply is pending.
func (e *testEnv) settle(t *testing.T, sessionID, anonID string) dialogue.Snapshot {
	t.Helper()

	deadline := time.Now().Add(settleDeadline)
	for {
		w := e.do(t, http.MethodGet, "/api/chat/session/"+sessionID, anonID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Snapshot request failed with status %d", w.Code)
		}
		snap := decodeSnapshot(t, w)
		if !snap.AwaitingReply {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("Session %s did not settle, stage %s", sessionID, snap.Stage)
		}
		time.Sleep(settleInterval)
	}
}

func (e *testEnv) turn(t *testing.T, sessionID, anonID, message string) dialogue.Snapshot {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/chat/session/"+sessionID+"/turn", anonID, turnRequest{Message: message})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Turn %q not accepted, status %d body %s", message, w.Code, w.Body.String())
	}
	return e.settle(t, sessionID, anonID)
}

func TestChat_StartSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/chat/session", testAnonID, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	snap := decodeSnapshot(t, w)
	if snap.SessionID == "" {
		t.Error("Expected a session id")
	}
	if snap.ApplicationID == "" {
		t.Error("Expected a bound application id")
	}
	if snap.Stage != "start" {
		t.Errorf("Expected stage start, got %q", snap.Stage)
	}
	if len(snap.Transcript) != 1 || snap.Transcript[0].Sender != domain.SenderSystem {
		t.Fatalf("Expected a single system greeting, got %+v", snap.Transcript)
	}

	// The draft record exists in Pending state from the first request.
	record, err := env.repo.GetApplication(context.Background(), snap.ApplicationID)
	if err != nil {
		t.Fatalf("Failed to load draft record: %v", err)
	}
	if record.Status != domain.StatusPending {
		t.Errorf("Expected Pending draft, got %s", record.Status)
	}
}

func TestChat_PersonalizedGreeting(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/me", testAnonID, updateMeRequest{DisplayName: "Priya"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 updating profile, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/chat/session", testAnonID, nil)
	snap := decodeSnapshot(t, w)
	if got := snap.Transcript[0].Text; got != "Hello Priya! Let's start a new loan application. What is your desired loan amount?" {
		t.Errorf("Unexpected greeting: %q", got)
	}
}

func TestChat_ApprovalFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/chat/session", testAnonID, nil)
	start := decodeSnapshot(t, w)

	snap := env.turn(t, start.SessionID, testAnonID, "200000")
	if snap.Stage != "get_tenure" {
		t.Fatalf("Expected get_tenure after amount, got %q", snap.Stage)
	}

	snap = env.turn(t, start.SessionID, testAnonID, "24")
	if snap.Stage != "handle_amount_offer_choice" {
		t.Fatalf("Expected offer choice after tenure, got %q", snap.Stage)
	}

	snap = env.turn(t, start.SessionID, testAnonID, "1")
	if snap.Stage != "get_purpose" {
		t.Fatalf("Expected get_purpose after offer choice, got %q", snap.Stage)
	}

	snap = env.turn(t, start.SessionID, testAnonID, "Wedding")
	if snap.Stage != "confirm_details" {
		t.Fatalf("Expected confirm_details after purpose, got %q", snap.Stage)
	}

	snap = env.turn(t, start.SessionID, testAnonID, "yes")
	if snap.Stage != "approved" {
		t.Fatalf("Expected approved, got %q", snap.Stage)
	}

	record, err := env.repo.GetApplication(context.Background(), snap.ApplicationID)
	if err != nil {
		t.Fatalf("Failed to load record: %v", err)
	}
	if record.Status != domain.StatusApproved {
		t.Errorf("Expected Approved record, got %s", record.Status)
	}
	if record.Amount != 200_000 || record.TenureMonths != 24 {
		t.Errorf("Unexpected finalized terms: %d over %d months", record.Amount, record.TenureMonths)
	}
	if got := record.InterestRate.StringFixed(2); got != "8.77" {
		t.Errorf("Expected rate 8.77, got %s", got)
	}
}

func TestChat_TurnErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/chat/session", testAnonID, nil)
	start := decodeSnapshot(t, w)

	// Empty input.
	w = env.do(t, http.MethodPost, "/api/chat/session/"+start.SessionID+"/turn", testAnonID, turnRequest{Message: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty message, got %d", w.Code)
	}

	// Unknown session.
	w = env.do(t, http.MethodPost, "/api/chat/session/nope/turn", testAnonID, turnRequest{Message: "200000"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown session, got %d", w.Code)
	}

	// Another applicant's session looks like it doesn't exist.
	w = env.do(t, http.MethodPost, "/api/chat/session/"+start.SessionID+"/turn", otherAnonID, turnRequest{Message: "200000"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for foreign session, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/chat/session/"+start.SessionID, otherAnonID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 snapshot for foreign session, got %d", w.Code)
	}
}

func TestChat_ResetSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/chat/session", testAnonID, nil)
	start := decodeSnapshot(t, w)

	env.turn(t, start.SessionID, testAnonID, "200000")

	w = env.do(t, http.MethodPost, "/api/chat/session/"+start.SessionID+"/reset", testAnonID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on reset, got %d", w.Code)
	}

	snap := decodeSnapshot(t, w)
	if snap.Stage != "start" {
		t.Errorf("Expected stage start after reset, got %q", snap.Stage)
	}
	if snap.ApplicationID == start.ApplicationID {
		t.Error("Expected a fresh application record after reset")
	}
	if len(snap.Transcript) != 1 {
		t.Errorf("Expected transcript reduced to the greeting, got %d messages", len(snap.Transcript))
	}

	// The abandoned record stays Pending.
	record, err := env.repo.GetApplication(context.Background(), start.ApplicationID)
	if err != nil {
		t.Fatalf("Failed to load abandoned record: %v", err)
	}
	if record.Status != domain.StatusPending {
		t.Errorf("Expected abandoned record to stay Pending, got %s", record.Status)
	}
}

func TestChat_IdentityCookie(t *testing.T) {
	env := newTestEnv(t)

	// No cookie: the middleware mints one.
	w := env.do(t, http.MethodPost, "/api/chat/session", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	var minted string
	for _, c := range cookies {
		if c.Name == identity.AnonCookieName {
			minted = c.Value
		}
	}
	if minted == "" {
		t.Fatal("Expected an anonymous identity cookie to be set")
	}

	// A malformed cookie value is replaced, not trusted.
	w = env.do(t, http.MethodPost, "/api/chat/session", invalidAnonID, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 with malformed cookie, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == identity.AnonCookieName && c.Value == invalidAnonID {
			t.Error("Malformed identity cookie was echoed back")
		}
	}
}
