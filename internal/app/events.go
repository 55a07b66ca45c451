package app

import (
	"parley/internal/chat"
	"parley/internal/types"
)

// EventFeed buffers stream events for the UI loop. Subscription callbacks
// run on the stream goroutine; the model drains the buffer once per tick
// so a fast producer cannot starve rendering.
type EventFeed struct {
	events           chan types.Event
	maxEventsPerTick int
}

func NewEventFeed(buffer, maxEventsPerTick int) *EventFeed {
	if buffer <= 0 {
		buffer = 256
	}
	if maxEventsPerTick <= 0 {
		maxEventsPerTick = 64
	}
	return &EventFeed{
		events:           make(chan types.Event, buffer),
		maxEventsPerTick: maxEventsPerTick,
	}
}

// Callbacks adapts the feed to the subscription interface. Every event
// kind funnels into the same buffer; a full buffer drops the event, which
// is safe because state is read back from the store, not from the feed.
func (f *EventFeed) Callbacks() chat.Callbacks {
	return chat.Callbacks{
		Token:       func(content string) { f.push(types.TokenEvent(content)) },
		Complete:    func(msg types.Message) { f.push(types.CompleteEvent(msg)) },
		ToolPending: func(tool types.PendingTool) { f.push(types.ToolPendingEvent(tool)) },
		ToolOutput:  func(msg types.Message) { f.push(types.ToolOutputEvent(msg)) },
		UserMessage: func(msg types.Message) { f.push(types.UserMessageEvent(msg)) },
		Error:       func(msg string) { f.push(types.ErrorEvent(msg)) },
	}
}

func (f *EventFeed) push(ev types.Event) {
	select {
	case f.events <- ev:
	default:
	}
}

// ConsumeTick drains up to maxEventsPerTick buffered events and reports
// whether anything arrived.
func (f *EventFeed) ConsumeTick() (drained []types.Event, changed bool) {
	if f == nil {
		return nil, false
	}
	for i := 0; i < f.maxEventsPerTick; i++ {
		select {
		case ev := <-f.events:
			drained = append(drained, ev)
		default:
			return drained, len(drained) > 0
		}
	}
	return drained, len(drained) > 0
}
