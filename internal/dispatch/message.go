// Package dispatch delivers inbound messages to the conversation engine
// with per-conversation ordering: messages for one conversation are
// handled in arrival order and never concurrently, while different
// conversations progress independently across workers.
package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// Message is one unit of work for the engine.
type Message struct {
	ID             string
	ConversationID string
	Sender         string
	Text           string
	Timestamp      time.Time
}

// NewMessage mints a message with a fresh ID.
func NewMessage(conversationID, sender, text string) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		Timestamp:      time.Now(),
	}
}
