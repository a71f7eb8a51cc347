package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/guysoft/wikiread/internal/conversation"
	"github.com/guysoft/wikiread/internal/telegram"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 2

// Engine handles one message and decides the reply. Implemented by the
// conversation engine.
type Engine interface {
	HandleMessage(ctx context.Context, conversationID, text string) conversation.Reply
}

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	Workers   int
	Manager   *Manager
	Engine    Engine
	Messenger telegram.Messenger
	Logger    *slog.Logger
}

// WorkerPool runs a fixed set of workers over the dispatch manager.
type WorkerPool struct {
	config PoolConfig
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWorkerPool creates a worker pool.
func NewWorkerPool(config PoolConfig) (*WorkerPool, error) {
	if config.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if config.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if config.Messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &WorkerPool{
		config: config,
		logger: config.Logger,
	}, nil
}

// Start runs the workers until the context ends, then waits for the
// in-flight messages to finish.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.logger.Info("worker pool starting", "workers", p.config.Workers)

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}

	<-ctx.Done()
	p.wg.Wait()

	p.logger.Info("worker pool stopped")
	return nil
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	manager := p.config.Manager
	for {
		if ctx.Err() != nil {
			return
		}

		msg := manager.Next()
		if msg == nil {
			manager.Wait(ctx)
			continue
		}

		// Pass the baton so an idle worker picks up other ready
		// conversations while this one is busy.
		manager.wake()

		p.process(ctx, id, msg)
		manager.Complete(msg.ConversationID)
	}
}

// process runs one message through the engine and delivers the reply.
// The engine always yields a reply; only delivery failures classified
// fatal surface here, and they are logged rather than retried.
func (p *WorkerPool) process(ctx context.Context, workerID int, msg *Message) {
	p.logger.Debug("processing message",
		"worker", workerID,
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID)

	reply := p.config.Engine.HandleMessage(ctx, msg.ConversationID, msg.Text)

	if err := p.config.Messenger.SendReply(ctx, msg.ConversationID, toTelegramReply(reply)); err != nil {
		p.logger.Error("failed to deliver reply",
			"worker", workerID,
			"message_id", msg.ID,
			"conversation_id", msg.ConversationID,
			"severity", telegram.ClassifyDeliveryError(err).String(),
			"error", err)
	}
}

func toTelegramReply(reply conversation.Reply) telegram.Reply {
	options := make([]telegram.Option, 0, len(reply.Options))
	for _, opt := range reply.Options {
		options = append(options, telegram.Option{Label: opt.Label, Token: opt.Token})
	}
	return telegram.Reply{
		Text:         reply.Text,
		Options:      options,
		ClearOptions: reply.ClearOptions,
	}
}
