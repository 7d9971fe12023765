// Package dialogue implements the stage-based loan-origination conversation.
//
// The Manager owns every active session: it creates the draft application
// record when a session starts, parses each user turn against the current
// stage, and issues the single terminal record mutation once the decision
// engine has run. Turn responses are computed on delayed callbacks to
// emulate backend latency; every callback is tagged with the session
// generation current at submission time and discards itself if the session
// has since been reset, so a stale callback can never touch a newer
// conversation.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loangenie/loangenie/internal/decision"
	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/shared"
	"github.com/loangenie/loangenie/internal/store"
)

var (
	// ErrSessionNotFound is returned for unknown session ids, and for
	// sessions owned by a different applicant.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTurnInFlight is returned when a turn is submitted while the
	// previous one is still being processed. The host must serialize turns.
	ErrTurnInFlight = errors.New("a turn is already being processed")

	// ErrSessionClosed is returned when input arrives at the processing or
	// terminal stages; only a new session accepts further input.
	ErrSessionClosed = errors.New("session no longer accepts input")

	// ErrEmptyInput is returned for blank turns.
	ErrEmptyInput = errors.New("input is empty")
)

// Event is pushed to the hosting surface whenever a session changes.
type Event struct {
	Type      string          `json:"type"` // "message" or "reset"
	SessionID string          `json:"session_id"`
	Stage     string          `json:"stage"`
	Message   *domain.Message `json:"message,omitempty"`
}

// Snapshot is a host-facing projection of one session.
type Snapshot struct {
	SessionID     string           `json:"session_id"`
	Stage         string           `json:"stage"`
	ApplicationID string           `json:"application_id"`
	Transcript    []domain.Message `json:"transcript"`
	AwaitingReply bool             `json:"awaiting_reply"`
}

// session is the mutable per-conversation state. Guarded by Manager.mu.
type session struct {
	id           string
	applicantID  string
	greetName    string
	generation   uint64
	stage        Stage
	draft        domain.LoanDraft
	offers       []domain.Offer
	transcript   []domain.Message
	recordID     string
	turnInFlight bool
	lastActivity time.Time
}

// eventBufferSize bounds the notify queue; events beyond it are dropped
// rather than blocking session processing.
const eventBufferSize = 256

// Manager coordinates dialogue sessions and their application records.
type Manager struct {
	mu            sync.Mutex
	repo          store.Repository
	sessions      map[string]*session
	turnDelay     time.Duration
	decisionDelay time.Duration
	notify        func(Event)
	events        chan Event
}

// NewManager creates a dialogue manager. turnDelay gates every turn
// response; decisionDelay additionally gates the terminal decision.
func NewManager(repo store.Repository, turnDelay, decisionDelay time.Duration) *Manager {
	return &Manager{
		repo:          repo,
		sessions:      make(map[string]*session),
		turnDelay:     turnDelay,
		decisionDelay: decisionDelay,
		events:        make(chan Event, eventBufferSize),
	}
}

// SetNotify installs the event sink used to push transcript updates to
// connected clients. Must be called before sessions are started. Events
// are delivered in order from a dedicated goroutine, so a slow consumer
// never holds up session processing.
func (m *Manager) SetNotify(fn func(Event)) {
	m.notify = fn
	go func() {
		for event := range m.events {
			fn(event)
		}
	}()
}

// publish queues an event for the notify sink. Called with the lock held;
// the queue keeps slow consumers from stalling sessions, and overflow is
// dropped since clients can recover state from the snapshot.
func (m *Manager) publish(event Event) {
	if m.notify == nil {
		return
	}
	select {
	case m.events <- event:
	default:
		slog.Warn("Dropping dialogue event, notify queue is full",
			"session_id", event.SessionID, "type", event.Type)
	}
}

// StartSession creates a new dialogue session for the applicant, binds a
// fresh Pending application record to it, and emits the greeting.
// displayName may be empty, in which case the greeting is generic.
func (m *Manager) StartSession(ctx context.Context, applicantID, displayName string) (Snapshot, error) {
	record := &domain.ApplicationRecord{
		ID:          uuid.NewString(),
		ApplicantID: applicantID,
		Type:        domain.LoanTypePersonal,
		Status:      domain.StatusPending,
	}
	if err := m.repo.CreateApplication(ctx, record); err != nil {
		return Snapshot{}, fmt.Errorf("create draft application: %w", err)
	}

	s := &session{
		id:           uuid.NewString(),
		applicantID:  applicantID,
		greetName:    displayName,
		stage:        StageStart,
		recordID:     record.ID,
		lastActivity: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.id] = s
	m.append(s, greeting(displayName))

	slog.Info("Dialogue session started",
		"session_id", s.id, "applicant_id", applicantID, "application_id", record.ID)

	return m.snapshotLocked(s), nil
}

// SubmitTurn accepts one user turn for asynchronous processing. The user
// message is appended to the transcript immediately; the engine's reply
// arrives after the configured turn delay.
func (m *Manager) SubmitTurn(_ context.Context, sessionID, applicantID, input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrEmptyInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.sessionLocked(sessionID, applicantID)
	if err != nil {
		return err
	}
	if !s.stage.AcceptsInput() {
		return ErrSessionClosed
	}
	if s.turnInFlight {
		return ErrTurnInFlight
	}

	m.append(s, domain.Message{
		Text:      trimmed,
		Sender:    domain.SenderUser,
		CreatedAt: time.Now(),
	})

	s.turnInFlight = true
	s.lastActivity = time.Now()
	gen := s.generation

	time.AfterFunc(m.turnDelay, func() {
		m.completeTurn(sessionID, gen, trimmed)
	})
	return nil
}

// completeTurn is the delayed turn callback. It re-validates the session
// generation before touching any state.
func (m *Manager) completeTurn(sessionID string, gen uint64, input string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s.generation != gen {
		slog.Debug("Discarding stale turn callback", "session_id", sessionID, "generation", gen)
		return
	}

	s.turnInFlight = false
	s.lastActivity = time.Now()
	m.applyTurn(s, input)
}

// scheduleDecision gates the terminal decision behind the longer
// processing delay. Called with the lock held on entry to StageProcessing.
func (m *Manager) scheduleDecision(s *session) {
	sessionID := s.id
	gen := s.generation
	time.AfterFunc(m.decisionDelay, func() {
		m.completeDecision(sessionID, gen)
	})
}

// completeDecision runs the decision engine and performs the session's one
// terminal record mutation. The store write (and its retry backoff) runs
// outside the lock; the generation is re-checked afterwards in case the
// session was reset while the write was in flight.
func (m *Manager) completeDecision(sessionID string, gen uint64) {
	m.mu.Lock()

	s, ok := m.sessions[sessionID]
	if !ok || s.generation != gen {
		m.mu.Unlock()
		slog.Debug("Discarding stale decision callback", "session_id", sessionID, "generation", gen)
		return
	}

	if s.recordID == "" {
		// Internal invariant violation, not a user-facing condition: every
		// session binds a record id at start. Surface in logs, not in chat.
		slog.Error("Decision reached with no bound application record",
			"session_id", s.id, "applicant_id", s.applicantID)
		s.stage = StageFailed
		m.mu.Unlock()
		return
	}

	recordID := s.recordID
	draft := s.draft
	m.mu.Unlock()

	verdict := decision.Decide(draft.Amount, draft.TenureMonths)
	status := domain.StatusRejected
	if verdict == decision.Approved {
		status = domain.StatusApproved
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record, finalizeErr := m.finalizeWithRetry(ctx, recordID,
		draft.Amount, draft.TenureMonths, draft.NegotiatedRate, status)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok = m.sessions[sessionID]
	if !ok || s.generation != gen {
		// The session was reset or evicted mid-write. The record is already
		// finalized (or failed) and belongs to the abandoned conversation.
		slog.Debug("Session moved on while finalizing", "session_id", sessionID, "generation", gen)
		return
	}

	s.lastActivity = time.Now()

	if finalizeErr != nil {
		if errors.Is(finalizeErr, store.ErrAlreadyFinalized) {
			slog.Error("Application finalized twice within one session",
				"session_id", s.id, "application_id", recordID)
		} else {
			slog.Error("Failed to finalize application",
				"error", finalizeErr, "session_id", s.id, "application_id", recordID)
		}
		s.stage = StageFailed
		failure := systemMessage("Something went wrong while processing your application. Please start a new application.")
		failure.Options = []string{ActionStartNewApplication}
		m.append(s, failure)
		return
	}

	s.recordID = record.ID

	var messages []domain.Message
	if status == domain.StatusApproved {
		s.stage = StageApproved
		messages = approvalMessages()
	} else {
		s.stage = StageRejected
		messages = rejectionMessages()
	}
	for _, msg := range messages {
		m.append(s, msg)
	}

	slog.Info("Application decided",
		"session_id", s.id, "application_id", record.ID, "status", string(status),
		"amount", record.Amount, "tenure_months", record.TenureMonths,
		"interest_rate", record.InterestRate.String())
}

// finalizeWithRetry attempts the terminal record mutation with exponential
// backoff to handle SQLITE_BUSY errors during concurrent operations.
func (m *Manager) finalizeWithRetry(ctx context.Context, recordID string, amount int64, tenureMonths int, rate decimal.Decimal, status domain.ApplicationStatus) (*domain.ApplicationRecord, error) {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		record, err := m.repo.FinalizeApplication(ctx, recordID, amount, tenureMonths, rate, status)
		if err == nil {
			return record, nil
		}
		lastErr = err

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Database locked during finalize, retrying",
				"application_id", recordID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// ResetSession discards the session's conversation and draft and starts a
// brand-new application under the same session id. The previous record is
// orphaned in Pending state (or left terminal) and never touched again.
func (m *Manager) ResetSession(ctx context.Context, sessionID, applicantID string) (Snapshot, error) {
	record := &domain.ApplicationRecord{
		ID:          uuid.NewString(),
		ApplicantID: applicantID,
		Type:        domain.LoanTypePersonal,
		Status:      domain.StatusPending,
	}
	if err := m.repo.CreateApplication(ctx, record); err != nil {
		return Snapshot{}, fmt.Errorf("create draft application: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.sessionLocked(sessionID, applicantID)
	if err != nil {
		return Snapshot{}, err
	}

	m.resetLockedWithRecord(s, record.ID)
	return m.snapshotLocked(s), nil
}

// resetLocked starts a fresh application within the session, creating the
// new Pending record inline. Used by the negative-confirmation branch.
func (m *Manager) resetLocked(s *session) {
	record := &domain.ApplicationRecord{
		ID:          uuid.NewString(),
		ApplicantID: s.applicantID,
		Type:        domain.LoanTypePersonal,
		Status:      domain.StatusPending,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.repo.CreateApplication(ctx, record); err != nil {
		slog.Error("Failed to create draft application on reset",
			"error", err, "session_id", s.id)
		failure := systemMessage("Something went wrong while starting over. Please start a new application.")
		failure.Options = []string{ActionStartNewApplication}
		m.append(s, failure)
		return
	}

	m.resetLockedWithRecord(s, record.ID)
}

// resetLockedWithRecord rebinds the session to recordID and restarts the
// conversation. Bumping the generation invalidates every callback still in
// flight for the old conversation.
func (m *Manager) resetLockedWithRecord(s *session, recordID string) {
	s.generation++
	s.stage = StageStart
	s.draft = domain.LoanDraft{}
	s.offers = nil
	s.transcript = nil
	s.recordID = recordID
	s.turnInFlight = false
	s.lastActivity = time.Now()

	m.publish(Event{Type: "reset", SessionID: s.id, Stage: s.stage.String()})
	m.append(s, greeting(s.greetName))

	slog.Info("Dialogue session reset",
		"session_id", s.id, "application_id", recordID, "generation", s.generation)
}

// Snapshot returns the host-facing view of a session.
func (m *Manager) Snapshot(sessionID, applicantID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.sessionLocked(sessionID, applicantID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshotLocked(s), nil
}

// StartSweeper evicts sessions idle longer than ttl. Runs until ctx is
// cancelled. Evicted sessions simply disappear; their records remain in
// the store and any in-flight callbacks become no-ops.
func (m *Manager) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(ttl)
			}
		}
	}()
}

func (m *Manager) sweep(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	for id, s := range m.sessions {
		if s.lastActivity.Before(cutoff) {
			delete(m.sessions, id)
			slog.Info("Evicted idle dialogue session", "session_id", id)
		}
	}
}

func (m *Manager) sessionLocked(sessionID, applicantID string) (*session, error) {
	s, ok := m.sessions[sessionID]
	if !ok || s.applicantID != applicantID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) snapshotLocked(s *session) Snapshot {
	transcript := make([]domain.Message, len(s.transcript))
	copy(transcript, s.transcript)

	return Snapshot{
		SessionID:     s.id,
		Stage:         s.stage.String(),
		ApplicationID: s.recordID,
		Transcript:    transcript,
		AwaitingReply: s.turnInFlight || s.stage == StageProcessing,
	}
}

// append adds a message to the transcript and pushes it to any listener.
// Called with the lock held.
func (m *Manager) append(s *session, msg domain.Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.transcript = append(s.transcript, msg)

	event := Event{Type: "message", SessionID: s.id, Stage: s.stage.String()}
	event.Message = &msg
	m.publish(event)
}

func systemMessage(text string) domain.Message {
	return domain.Message{
		Text:      text,
		Sender:    domain.SenderSystem,
		CreatedAt: time.Now(),
	}
}

func greeting(displayName string) domain.Message {
	if displayName == "" {
		return systemMessage("Hello! Let's start a new loan application. What is your desired loan amount?")
	}
	return systemMessage(fmt.Sprintf("Hello %s! Let's start a new loan application. What is your desired loan amount?", displayName))
}
