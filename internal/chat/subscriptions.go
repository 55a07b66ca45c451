package chat

import (
	"sort"
	"sync"

	"parley/internal/logging"
	"parley/internal/types"
)

// Callbacks receives the fan-out for one subscriber. Callbacks are invoked
// synchronously on the dispatch loop, in event arrival order; they must
// not block. Nil members are skipped.
type Callbacks struct {
	Token       func(content string)
	Complete    func(msg types.Message)
	ToolPending func(tool types.PendingTool)
	ToolOutput  func(msg types.Message)
	UserMessage func(msg types.Message)
	Error       func(msg string)
}

func (cb Callbacks) dispatch(ev types.Event) {
	switch ev.Kind {
	case types.EventToken:
		if cb.Token != nil {
			cb.Token(ev.Content)
		}
	case types.EventComplete:
		if cb.Complete != nil && ev.Message != nil {
			cb.Complete(*ev.Message)
		}
	case types.EventToolPending:
		if cb.ToolPending != nil && ev.Tool != nil {
			cb.ToolPending(*ev.Tool)
		}
	case types.EventToolOutput:
		if cb.ToolOutput != nil && ev.Message != nil {
			cb.ToolOutput(*ev.Message)
		}
	case types.EventUserMessage:
		if cb.UserMessage != nil && ev.Message != nil {
			cb.UserMessage(*ev.Message)
		}
	case types.EventError:
		if cb.Error != nil {
			cb.Error(ev.Err)
		}
	}
}

// Subscriptions fans one conversation's event stream out to any number of
// logical subscribers (one per open view of the conversation) over a
// single underlying connection. Each event is first reconciled into the
// store, then broadcast to subscribers in registration order, so every
// consumer observes the same post-event state.
type Subscriptions struct {
	store *Store
	log   logging.Logger

	mu      sync.Mutex
	convos  map[string]*subscribed
	nextKey int
}

type subscribed struct {
	subs   map[int]Callbacks
	cancel func()
	done   chan struct{}
}

func NewSubscriptions(store *Store, log logging.Logger) *Subscriptions {
	if log == nil {
		log = logging.Nop()
	}
	return &Subscriptions{
		store:  store,
		log:    log,
		convos: map[string]*subscribed{},
	}
}

// Subscribe registers callbacks for a conversation and returns an
// unsubscribe func. When the last subscriber leaves, any attached stream
// is closed.
func (s *Subscriptions) Subscribe(id string, cb Callbacks) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(id)
	s.nextKey++
	key := s.nextKey
	entry.subs[key] = cb

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		entry, ok := s.convos[id]
		if !ok {
			return
		}
		delete(entry.subs, key)
		if len(entry.subs) == 0 {
			s.closeLocked(id, entry)
		}
	}
}

// Attach consumes a generation event stream for the conversation. At most
// one stream is live per conversation: attaching replaces (cancels) any
// previous one. The returned channel closes when the stream is fully
// drained or canceled.
func (s *Subscriptions) Attach(id string, events <-chan types.Event, cancel func()) <-chan struct{} {
	s.mu.Lock()
	entry := s.entryLocked(id)
	if entry.cancel != nil {
		entry.cancel()
	}
	done := make(chan struct{})
	entry.cancel = cancel
	entry.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range events {
			s.store.Apply(id, ev)
			for _, cb := range s.snapshotSubs(id) {
				cb.dispatch(ev)
			}
		}
		s.mu.Lock()
		if entry, ok := s.convos[id]; ok && entry.done == done {
			entry.cancel = nil
			entry.done = nil
		}
		s.mu.Unlock()
	}()
	return done
}

// HasStream reports whether a generation stream is currently attached.
func (s *Subscriptions) HasStream(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.convos[id]
	return ok && entry.cancel != nil
}

// Close cancels the conversation's stream, if any.
func (s *Subscriptions) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.convos[id]
	if !ok {
		return
	}
	if entry.cancel != nil {
		entry.cancel()
		entry.cancel = nil
		entry.done = nil
	}
}

// CloseAll cancels every attached stream, used when switching servers so
// the old transport cannot cross-talk into the new one.
func (s *Subscriptions) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.convos {
		if entry.cancel != nil {
			entry.cancel()
			entry.cancel = nil
			entry.done = nil
		}
		if len(entry.subs) == 0 {
			delete(s.convos, id)
		}
	}
}

func (s *Subscriptions) entryLocked(id string) *subscribed {
	entry, ok := s.convos[id]
	if !ok {
		entry = &subscribed{subs: map[int]Callbacks{}}
		s.convos[id] = entry
	}
	return entry
}

func (s *Subscriptions) closeLocked(id string, entry *subscribed) {
	if entry.cancel != nil {
		entry.cancel()
		entry.cancel = nil
		entry.done = nil
	}
	delete(s.convos, id)
}

// snapshotSubs returns the subscribers in registration order. The
// snapshot keeps the dispatch loop safe against callbacks that
// unsubscribe mid-broadcast.
func (s *Subscriptions) snapshotSubs(id string) []Callbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.convos[id]
	if !ok {
		return nil
	}
	keys := make([]int, 0, len(entry.subs))
	for key := range entry.subs {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	out := make([]Callbacks, 0, len(keys))
	for _, key := range keys {
		out = append(out, entry.subs[key])
	}
	return out
}
