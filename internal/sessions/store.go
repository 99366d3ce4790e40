// Package sessions keeps a bounded, in-memory sliding window of conversation
// turns per session. It is a best-effort conversational continuity aid keyed
// by a caller-supplied identifier, not a security boundary, and lives for the
// process lifetime only.
package sessions

import (
	"sync"
	"time"
)

// Message roles. Only user and assistant turns are stored; system prompts
// are assembled fresh on every request.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type session struct {
	messages     []Message
	lastActivity time.Time
}

// Store manages per-session conversation windows. A single store-level mutex
// serializes all access; sessions are small and appends are rare enough that
// finer-grained locking buys nothing here.
type Store struct {
	mu       sync.Mutex
	window   int
	sessions map[string]*session
}

// NewStore creates a session store capped at window messages per session.
// window counts individual turns and must be even (user+assistant pairs);
// values below 2 are raised to 2.
func NewStore(window int) *Store {
	if window < 2 {
		window = 2
	}
	if window%2 != 0 {
		window++
	}
	return &Store{
		window:   window,
		sessions: make(map[string]*session),
	}
}

// Window returns the configured per-session cap.
func (s *Store) Window() int {
	return s.window
}

// Append records a completed (user, assistant) pair for the session, then
// truncates from the front so the history never exceeds the window. The pair
// is appended together: a failed chat turn must never leave a lone user
// message behind.
func (s *Store) Append(sessionID, userContent, assistantContent string) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}

	sess.messages = append(sess.messages,
		Message{Role: RoleUser, Content: userContent, Timestamp: now},
		Message{Role: RoleAssistant, Content: assistantContent, Timestamp: now},
	)
	if excess := len(sess.messages) - s.window; excess > 0 {
		sess.messages = append([]Message(nil), sess.messages[excess:]...)
	}
	sess.lastActivity = now
}

// History returns a copy of the session's messages, oldest first. An unknown
// session yields an empty slice, never an error.
func (s *Store) History(sessionID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []Message{}
	}
	return append([]Message(nil), sess.messages...)
}

// Snapshot dumps all session histories for admin inspection.
func (s *Store) Snapshot() map[string][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]Message, len(s.sessions))
	for id, sess := range s.sessions {
		out[id] = append([]Message(nil), sess.messages...)
	}
	return out
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops sessions with no activity for at least ttl and returns the
// number evicted. Run periodically by the maintenance scheduler.
func (s *Store) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().UTC().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastActivity.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
