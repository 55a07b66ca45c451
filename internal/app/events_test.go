package app

import (
	"testing"

	"parley/internal/types"
)

func TestConsumeTickDrainsBufferedEvents(t *testing.T) {
	feed := NewEventFeed(16, 64)
	cb := feed.Callbacks()
	cb.Token("hel")
	cb.Token("lo")
	cb.Complete(types.NewMessage(types.RoleAssistant, "hello"))

	events, changed := feed.ConsumeTick()
	if !changed {
		t.Fatal("expected changed")
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Kind != types.EventToken || events[0].Content != "hel" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[2].Kind != types.EventComplete {
		t.Fatalf("unexpected last event %+v", events[2])
	}
}

func TestConsumeTickRespectsPerTickCap(t *testing.T) {
	feed := NewEventFeed(32, 4)
	cb := feed.Callbacks()
	for i := 0; i < 10; i++ {
		cb.Token("x")
	}

	events, _ := feed.ConsumeTick()
	if len(events) != 4 {
		t.Fatalf("expected 4 events on first tick, got %d", len(events))
	}
	events, _ = feed.ConsumeTick()
	if len(events) != 4 {
		t.Fatalf("expected 4 events on second tick, got %d", len(events))
	}
}

func TestPushDropsWhenFullInsteadOfBlocking(t *testing.T) {
	feed := NewEventFeed(2, 64)
	cb := feed.Callbacks()
	for i := 0; i < 5; i++ {
		cb.Token("x")
	}
	events, _ := feed.ConsumeTick()
	if len(events) != 2 {
		t.Fatalf("expected overflow to be dropped, got %d events", len(events))
	}
}

func TestConsumeTickEmptyFeed(t *testing.T) {
	feed := NewEventFeed(8, 8)
	events, changed := feed.ConsumeTick()
	if changed || len(events) != 0 {
		t.Fatalf("expected no events, got %d (changed=%v)", len(events), changed)
	}
}
