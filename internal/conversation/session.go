// Package conversation holds the per-conversation dialogue state and the
// engine that drives it.
package conversation

import (
	"fmt"
	"sync"
)

// Stage is a conversation's position in the dialogue state machine.
type Stage int

const (
	// StageIdle means the next message is treated as a fresh search query.
	StageIdle Stage = iota
	// StageAwaitingSelection means the bot has presented candidates and
	// the next message is expected to pick one.
	StageAwaitingSelection
)

// String returns a human-readable stage name for logging.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAwaitingSelection:
		return "awaiting_selection"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Session is the mutable dialogue state for one conversation.
//
// Invariant: Candidates is non-empty exactly when Stage is
// StageAwaitingSelection.
type Session struct {
	ConversationID string
	Stage          Stage
	Candidates     []string
}

// AwaitSelection moves the session into the selection stage with the
// given candidate titles.
func (s *Session) AwaitSelection(candidates []string) error {
	if len(candidates) == 0 {
		return fmt.Errorf("cannot await selection with no candidates")
	}
	s.Stage = StageAwaitingSelection
	s.Candidates = candidates
	return nil
}

// Reset returns the session to the idle stage. An idle session with no
// candidates is indistinguishable from a fresh one.
func (s *Session) Reset() {
	s.Stage = StageIdle
	s.Candidates = nil
}

// HasCandidate reports whether title exactly matches one of the stored
// candidates.
func (s *Session) HasCandidate(title string) bool {
	for _, c := range s.Candidates {
		if c == title {
			return true
		}
	}
	return false
}

// Store owns all sessions, keyed by conversation ID. The dispatch layer
// guarantees a single writer per conversation; the store's lock only
// protects the map across conversations.
type Store struct {
	sessions map[string]*Session
	mu       sync.Mutex
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for a conversation, creating an idle one on
// first contact.
func (st *Store) Get(conversationID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if sess, exists := st.sessions[conversationID]; exists {
		return sess
	}

	sess := &Session{ConversationID: conversationID, Stage: StageIdle}
	st.sessions[conversationID] = sess
	return sess
}

// Put overwrites the stored session for a conversation.
func (st *Store) Put(conversationID string, sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions[conversationID] = sess
}

// Stats returns current session statistics.
func (st *Store) Stats() map[string]int {
	st.mu.Lock()
	defer st.mu.Unlock()

	awaiting := 0
	for _, sess := range st.sessions {
		if sess.Stage == StageAwaitingSelection {
			awaiting++
		}
	}

	return map[string]int{
		"total":    len(st.sessions),
		"awaiting": awaiting,
	}
}
