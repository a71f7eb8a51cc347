package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI scripts the bot API for tests.
type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	sendErr error
	updates chan tgbotapi.Update
	stopped bool
}

var _ botAPI = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) sentMessages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := make([]tgbotapi.MessageConfig, 0, len(f.sent))
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{UserName: "tester"},
			Text: text,
			Date: int(time.Now().Unix()),
		},
	}
}

func commandUpdate(chatID int64, command string) tgbotapi.Update {
	update := textUpdate(chatID, command)
	update.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(command)},
	}
	return update
}

func TestSendReplyPlainText(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api)

	err := bot.SendReply(context.Background(), "42", Reply{Text: "hello"})
	require.NoError(t, err)

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Nil(t, msgs[0].ReplyMarkup)
}

func TestSendReplyWithOptions(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api)

	reply := Reply{
		Text: "Please select one of the results, or /cancel to cancel:",
		Options: []Option{
			{Label: "Mercury (planet)", Token: `{"t":"Mercury (planet)"}`},
			{Label: "Mercury (element)", Token: `{"t":"Mercury (element)"}`},
		},
	}

	require.NoError(t, bot.SendReply(context.Background(), "42", reply))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)

	keyboard, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok, "expected a reply keyboard, got %T", msgs[0].ReplyMarkup)
	assert.True(t, keyboard.OneTimeKeyboard)
	require.Len(t, keyboard.Keyboard, 2)
	assert.Equal(t, "Mercury (planet)", keyboard.Keyboard[0][0].Text)
	assert.Equal(t, "Mercury (element)", keyboard.Keyboard[1][0].Text)
}

func TestSendReplyClearsOptions(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api)

	require.NoError(t, bot.SendReply(context.Background(), "42", Reply{
		Text:         "Perhaps another time",
		ClearOptions: true,
	}))

	msgs := api.sentMessages()
	require.Len(t, msgs, 1)
	_, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
	assert.True(t, ok, "expected keyboard removal, got %T", msgs[0].ReplyMarkup)
}

func TestSendReplySwallowsIgnorableFailures(t *testing.T) {
	api := newFakeAPI()
	api.sendErr = &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	bot := newBot(api)

	err := bot.SendReply(context.Background(), "42", Reply{Text: "hello"})
	assert.NoError(t, err, "ignorable delivery failures must not propagate")
}

func TestSendReplyRejectsBadConversationID(t *testing.T) {
	bot := newBot(newFakeAPI())

	err := bot.SendReply(context.Background(), "not-a-chat-id", Reply{Text: "hello"})
	assert.Error(t, err)
}

func TestSubscribeForwardsTextMessages(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bot.Subscribe(ctx)
	require.NoError(t, err)

	api.updates <- textUpdate(42, "Mercury")

	select {
	case msg := <-messages:
		assert.Equal(t, "42", msg.ConversationID)
		assert.Equal(t, "Mercury", msg.Text)
		assert.Equal(t, "tester", msg.From)
	case <-time.After(time.Second):
		t.Fatal("no message forwarded")
	}
}

func TestSubscribeRoutesCommands(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bot.Subscribe(ctx)
	require.NoError(t, err)

	api.updates <- commandUpdate(42, "/start")
	api.updates <- commandUpdate(42, "/help")
	// /cancel belongs to the state machine and must pass through.
	api.updates <- commandUpdate(42, "/cancel")

	select {
	case msg := <-messages:
		assert.Equal(t, "/cancel", msg.Text)
	case <-time.After(time.Second):
		t.Fatal("cancel command was not forwarded")
	}

	msgs := api.sentMessages()
	require.Len(t, msgs, 2, "start and help should be answered directly")
	assert.Equal(t, startText, msgs[0].Text)
	assert.Equal(t, helpText, msgs[1].Text)
}

func TestSubscribeStopsOnContextCancel(t *testing.T) {
	api := newFakeAPI()
	bot := newBot(api)

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := bot.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-messages:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestNewBotRequiresToken(t *testing.T) {
	if _, err := NewBot(""); err == nil {
		t.Error("NewBot(\"\") did not fail")
	}
}
