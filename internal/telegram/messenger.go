package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// updateTimeout is the long-polling timeout in seconds.
	updateTimeout = 60

	// incomingChannelSize buffers the inbound message channel.
	incomingChannelSize = 100
)

// Static texts for the out-of-band commands.
const (
	startText = "I'm a Wikipedia bot, send me an article you want to search for, please type /help for info"
	helpText  = "The following commands are available:\n" +
		"Any text Search for an article\n" +
		"/help Get this message\n"
)

// botAPI is the slice of tgbotapi.BotAPI the messenger uses (allows
// mocking in tests).
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot implements Messenger over the Telegram Bot API.
type Bot struct {
	api    botAPI
	logger *slog.Logger
}

// BotOption configures the bot.
type BotOption func(*Bot)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) BotOption {
	return func(b *Bot) {
		b.logger = logger
	}
}

// NewBot creates a Telegram messenger for the given bot token.
func NewBot(token string, opts ...BotOption) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return newBot(api, opts...), nil
}

// newBot wires a bot over an existing API client. Used by NewBot and by
// tests.
func newBot(api botAPI, opts ...BotOption) *Bot {
	b := &Bot{
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SendReply delivers a reply. Delivery failures are run through the
// delivery-error classifier: ignorable failures are logged and swallowed
// so they never disturb conversation state; only a failure classified
// fatal propagates.
func (b *Bot) SendReply(ctx context.Context, conversationID string, reply Reply) error {
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation ID %q: %w", conversationID, err)
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	switch {
	case len(reply.Options) > 0:
		msg.ReplyMarkup = buildKeyboard(reply.Options)
	case reply.ClearOptions:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("send canceled: %w", ctx.Err())
	}

	if _, err := b.api.Send(msg); err != nil {
		severity := ClassifyDeliveryError(err)
		if severity == SeverityIgnorable {
			b.logger.Warn("delivery failure ignored",
				"conversation_id", conversationID,
				"kind", DescribeDeliveryError(err),
				"error", err)
			return nil
		}
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

// buildKeyboard renders options as a one-time reply keyboard, one option
// per row, the way the selectable list is presented to the user.
func buildKeyboard(options []Option) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(opt.Label)))
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.OneTimeKeyboard = true
	return keyboard
}

// Subscribe starts long polling and returns the inbound message channel.
func (b *Bot) Subscribe(ctx context.Context) (<-chan IncomingMessage, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout

	updates := b.api.GetUpdatesChan(u)
	out := make(chan IncomingMessage, incomingChannelSize)

	go b.pump(ctx, updates, out)

	return out, nil
}

// pump forwards updates until the context ends or Telegram closes the
// stream.
func (b *Bot) pump(ctx context.Context, updates tgbotapi.UpdatesChannel, out chan<- IncomingMessage) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				return
			}

			msg := update.Message
			if msg == nil || msg.Text == "" {
				continue
			}

			if b.routeCommand(msg) {
				continue
			}

			out <- IncomingMessage{
				ConversationID: strconv.FormatInt(msg.Chat.ID, 10),
				From:           senderName(msg),
				Text:           msg.Text,
				Timestamp:      msg.Time(),
			}
		}
	}
}

// routeCommand answers the out-of-band commands directly. They never
// reach the state machine and never change a conversation's stage.
// /cancel is part of the state machine and passes through.
func (b *Bot) routeCommand(msg *tgbotapi.Message) bool {
	if !msg.IsCommand() {
		return false
	}

	var text string
	switch msg.Command() {
	case "start":
		text = startText
	case "help":
		text = helpText
	default:
		return false
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Warn("failed to answer command",
			"command", msg.Command(),
			"kind", DescribeDeliveryError(err),
			"error", err)
	}
	return true
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	if msg.From.UserName != "" {
		return msg.From.UserName
	}
	return msg.From.FirstName
}
