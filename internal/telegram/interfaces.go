// Package telegram provides the Telegram transport for the bot: long
// polling, reply delivery with selectable options, out-of-band command
// routing, and delivery-error classification.
package telegram

import (
	"context"
	"time"
)

// IncomingMessage is one inbound text message, already past command
// routing.
type IncomingMessage struct {
	ConversationID string
	From           string
	Text           string
	Timestamp      time.Time
}

// Option is one selectable reply option. Label is shown to the user;
// Token is the opaque identifier bound to the option.
type Option struct {
	Label string
	Token string
}

// Reply is one outbound message, optionally carrying a one-shot
// selectable list or an instruction to clear a previous one.
type Reply struct {
	Text         string
	Options      []Option
	ClearOptions bool
}

// Messenger abstracts Telegram communication for the dispatch layer.
type Messenger interface {
	// SendReply delivers a reply to the given conversation.
	SendReply(ctx context.Context, conversationID string, reply Reply) error

	// Subscribe returns a channel of incoming messages. Commands handled
	// out-of-band never appear on it.
	Subscribe(ctx context.Context) (<-chan IncomingMessage, error)
}
