package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/market-v/storefront/internal/catalog"
)

// Direction says who authored a chat message.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ChatMessage is one entry of a session log.
type ChatMessage struct {
	Text               string            `json:"text"`
	Timestamp          time.Time         `json:"timestamp"`
	Direction          Direction         `json:"direction"`
	ProductSuggestions []catalog.Product `json:"productSuggestions"`
}

// State is the turn state of a session.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingReply State = "awaiting_reply"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrTurnInProgress  = errors.New("a reply is still being prepared for this session")
)

// Session owns one conversation. Its log is append-only.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn sync.Mutex

	mu         sync.RWMutex
	state      State
	messages   []ChatMessage
	lastActive time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		state:      StateIdle,
		lastActive: now,
	}
}

// Messages returns a copy of the log.
func (s *Session) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastActive returns when the session last changed.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) append(msg ChatMessage, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.state = next
	s.lastActive = msg.Timestamp
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastActive) {
		s.lastActive = now
	}
}

// SessionManager owns the live sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager creates a manager that expires sessions idle for
// longer than ttl. A ttl <= 0 disables expiry.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session.
func (m *SessionManager) Create() *Session {
	s := newSession(m.now())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id and marks it active, so a sweep cannot
// remove it between lookup and the caller's next turn.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Delete removes a session.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes idle sessions that are past their ttl and returns how many
// were removed. Sessions mid-turn are kept.
func (m *SessionManager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.State() == StateIdle && s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
