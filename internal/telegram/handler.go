package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MessageEnqueuer hands inbound messages to the dispatch layer.
type MessageEnqueuer interface {
	Enqueue(msg IncomingMessage) error
}

// Handler connects the Telegram subscription to the dispatcher.
type Handler struct {
	messenger Messenger
	queue     MessageEnqueuer
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// HandlerOption configures the handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets a custom logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a receive handler.
func NewHandler(messenger Messenger, queue MessageEnqueuer, opts ...HandlerOption) (*Handler, error) {
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}

	h := &Handler{
		messenger: messenger,
		queue:     queue,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Start subscribes to inbound messages and feeds the dispatcher until
// the context ends.
func (h *Handler) Start(ctx context.Context) error {
	messages, err := h.messenger.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to messages: %w", err)
	}

	h.logger.Info("telegram handler started")

	h.wg.Add(1)
	go h.forward(ctx, messages)

	<-ctx.Done()
	h.wg.Wait()

	h.logger.Info("telegram handler stopped")
	return nil
}

func (h *Handler) forward(ctx context.Context, messages <-chan IncomingMessage) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-messages:
			if !ok {
				h.logger.Debug("message channel closed")
				return
			}

			if err := h.queue.Enqueue(msg); err != nil {
				h.logger.Error("failed to enqueue message",
					"conversation_id", msg.ConversationID,
					"error", err)
				continue
			}

			h.logger.Debug("message enqueued",
				"conversation_id", msg.ConversationID,
				"text_length", len(msg.Text))
		}
	}
}
