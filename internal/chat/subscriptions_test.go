package chat

import (
	"testing"
	"time"

	"parley/internal/logging"
	"parley/internal/types"
)

func feedEvents(events ...types.Event) <-chan types.Event {
	ch := make(chan types.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatch loop did not finish")
	}
}

func TestFanOutPreservesOrderForAllSubscribers(t *testing.T) {
	store := NewStore()
	subs := NewSubscriptions(store, logging.Nop())

	var a, b []string
	record := func(dst *[]string) Callbacks {
		return Callbacks{
			Token:    func(content string) { *dst = append(*dst, "token:"+content) },
			Complete: func(msg types.Message) { *dst = append(*dst, "complete") },
			Error:    func(msg string) { *dst = append(*dst, "error") },
		}
	}
	unsubA := subs.Subscribe("c1", record(&a))
	unsubB := subs.Subscribe("c1", record(&b))
	defer unsubA()
	defer unsubB()

	newTurn(t, store, "c1", "hi")
	done := subs.Attach("c1", feedEvents(
		types.TokenEvent("1"),
		types.TokenEvent("2"),
		types.CompleteEvent(types.NewMessage(types.RoleAssistant, "12")),
	), func() {})
	waitDone(t, done)

	want := []string{"token:1", "token:2", "complete"}
	for name, got := range map[string][]string{"a": a, "b": b} {
		if len(got) != len(want) {
			t.Fatalf("subscriber %s saw %d events, want %d", name, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("subscriber %s out of order at %d: %v", name, i, got)
			}
		}
	}
}

func TestLastUnsubscribeClosesStream(t *testing.T) {
	store := NewStore()
	subs := NewSubscriptions(store, logging.Nop())

	canceled := make(chan struct{})
	events := make(chan types.Event)
	unsubA := subs.Subscribe("c1", Callbacks{})
	unsubB := subs.Subscribe("c1", Callbacks{})
	subs.Attach("c1", events, func() { close(canceled); close(events) })

	unsubA()
	select {
	case <-canceled:
		t.Fatalf("stream closed while a subscriber remained")
	case <-time.After(50 * time.Millisecond):
	}

	unsubB()
	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatalf("stream not closed after last unsubscribe")
	}
}

func TestAttachReplacesPreviousStream(t *testing.T) {
	store := NewStore()
	subs := NewSubscriptions(store, logging.Nop())

	firstCanceled := make(chan struct{})
	first := make(chan types.Event)
	subs.Attach("c1", first, func() { close(firstCanceled); close(first) })

	subs.Attach("c1", feedEvents(), func() {})
	select {
	case <-firstCanceled:
	case <-time.After(time.Second):
		t.Fatalf("previous stream not canceled on re-attach")
	}
}

func TestSecondSessionSeesSingleEntryForEchoedMessage(t *testing.T) {
	store := NewStore()
	subs := NewSubscriptions(store, logging.Nop())

	// Session B only observes.
	unsub := subs.Subscribe("c1", Callbacks{})
	defer unsub()

	// Session A sends: optimistic insert, then the service echoes the user
	// message back on the shared stream moments later.
	user := types.NewMessage(types.RoleUser, "Hello")
	user.ID = "local-1"
	placeholder := types.NewMessage(types.RoleAssistant, "")
	placeholder.ID = "local-2"
	if _, err := store.BeginTurn("c1", user, placeholder); err != nil {
		t.Fatalf("BeginTurn: %v", err)
	}

	echo := types.Message{Role: types.RoleUser, Content: "Hello", Timestamp: user.Time().Add(400 * time.Millisecond).Format(time.RFC3339Nano)}
	done := subs.Attach("c1", feedEvents(
		types.UserMessageEvent(echo),
		types.CompleteEvent(types.NewMessage(types.RoleAssistant, "Hi")),
	), func() {})
	waitDone(t, done)

	users := 0
	for _, m := range store.State("c1").Log {
		if m.Role == types.RoleUser {
			users++
		}
	}
	if users != 1 {
		t.Fatalf("echoed user message duplicated: %d user entries", users)
	}
}
