package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeMessenger feeds a scripted message stream.
type fakeMessenger struct {
	messages chan IncomingMessage
}

var _ Messenger = (*fakeMessenger)(nil)

func (f *fakeMessenger) SendReply(context.Context, string, Reply) error {
	return nil
}

func (f *fakeMessenger) Subscribe(context.Context) (<-chan IncomingMessage, error) {
	return f.messages, nil
}

// recordingEnqueuer records enqueued messages.
type recordingEnqueuer struct {
	mu   sync.Mutex
	got  []IncomingMessage
	fail bool
}

func (r *recordingEnqueuer) Enqueue(msg IncomingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("queue full")
	}
	r.got = append(r.got, msg)
	return nil
}

func (r *recordingEnqueuer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestHandlerForwardsMessages(t *testing.T) {
	messenger := &fakeMessenger{messages: make(chan IncomingMessage, 10)}
	enqueuer := &recordingEnqueuer{}

	handler, err := NewHandler(messenger, enqueuer)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if startErr := handler.Start(ctx); startErr != nil {
			t.Errorf("Start() error = %v", startErr)
		}
	}()

	messenger.messages <- IncomingMessage{ConversationID: "1", Text: "Mercury"}
	messenger.messages <- IncomingMessage{ConversationID: "2", Text: "Venus"}

	deadline := time.After(time.Second)
	for enqueuer.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d messages enqueued", enqueuer.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not stop")
	}
}

func TestHandlerContinuesAfterEnqueueError(t *testing.T) {
	messenger := &fakeMessenger{messages: make(chan IncomingMessage, 10)}
	enqueuer := &recordingEnqueuer{fail: true}

	handler, err := NewHandler(messenger, enqueuer)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = handler.Start(ctx)
	}()

	messenger.messages <- IncomingMessage{ConversationID: "1", Text: "Mercury"}

	// The failed enqueue must not take the handler down.
	enqueuer.mu.Lock()
	enqueuer.fail = false
	enqueuer.mu.Unlock()

	messenger.messages <- IncomingMessage{ConversationID: "1", Text: "Venus"}

	deadline := time.After(time.Second)
	for enqueuer.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("handler stopped forwarding after an enqueue error")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestNewHandlerValidation(t *testing.T) {
	messenger := &fakeMessenger{messages: make(chan IncomingMessage)}
	enqueuer := &recordingEnqueuer{}

	if _, err := NewHandler(nil, enqueuer); err == nil {
		t.Error("NewHandler accepted nil messenger")
	}
	if _, err := NewHandler(messenger, nil); err == nil {
		t.Error("NewHandler accepted nil queue")
	}
}
