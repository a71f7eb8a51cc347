package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// conversationQueue is the pending FIFO for one conversation. inFlight
// marks a message currently being processed; while it is set the
// conversation yields nothing, which is what serializes a conversation.
type conversationQueue struct {
	pending  []*Message
	inFlight bool
}

// Manager routes messages into per-conversation queues and hands them
// out to workers one per conversation at a time.
type Manager struct {
	queues map[string]*conversationQueue
	// order preserves first-contact order for the round-robin scan so no
	// conversation starves.
	order  []string
	cursor int
	notify chan struct{}
	logger *slog.Logger
	mu     sync.Mutex
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty dispatch manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		queues: make(map[string]*conversationQueue),
		notify: make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit appends a message to its conversation's queue and wakes a
// worker.
func (m *Manager) Submit(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("cannot submit nil message")
	}
	if msg.ConversationID == "" {
		return fmt.Errorf("message %s has no conversation ID", msg.ID)
	}

	m.mu.Lock()
	q, exists := m.queues[msg.ConversationID]
	if !exists {
		q = &conversationQueue{}
		m.queues[msg.ConversationID] = q
		m.order = append(m.order, msg.ConversationID)
	}
	q.pending = append(q.pending, msg)
	depth := len(q.pending)
	m.mu.Unlock()

	m.logger.Debug("message submitted",
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"queue_depth", depth)

	m.wake()
	return nil
}

// Next returns the next message from a conversation with no message in
// flight, or nil when nothing is ready. The conversation is marked in
// flight until Complete is called for it.
func (m *Manager) Next() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.order {
		id := m.order[(m.cursor+i)%len(m.order)]
		q := m.queues[id]
		if q.inFlight || len(q.pending) == 0 {
			continue
		}

		msg := q.pending[0]
		q.pending = q.pending[1:]
		q.inFlight = true
		m.cursor = (m.cursor + i + 1) % len(m.order)
		return msg
	}

	return nil
}

// Complete marks a conversation's in-flight message as done, releasing
// the conversation for its next message.
func (m *Manager) Complete(conversationID string) {
	m.mu.Lock()
	q, exists := m.queues[conversationID]
	var more bool
	if exists {
		q.inFlight = false
		more = len(q.pending) > 0
	}
	m.mu.Unlock()

	if !exists {
		m.logger.Warn("completed unknown conversation", "conversation_id", conversationID)
		return
	}
	if more {
		m.wake()
	}
}

// Wait blocks until new work may be available or the context ends.
// Spurious wakeups are fine; callers loop over Next anyway.
func (m *Manager) Wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-m.notify:
	}
}

// wake nudges one waiting worker. The buffer of one collapses bursts;
// workers drain Next in a loop so a collapsed wakeup is never lost.
func (m *Manager) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Stats returns current queue statistics.
func (m *Manager) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	queued := 0
	inFlight := 0
	for _, q := range m.queues {
		queued += len(q.pending)
		if q.inFlight {
			inFlight++
		}
	}

	return map[string]int{
		"conversations": len(m.queues),
		"queued":        queued,
		"in_flight":     inFlight,
	}
}
