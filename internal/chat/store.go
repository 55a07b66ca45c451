package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"parley/internal/logging"
	"parley/internal/types"
)

const defaultDedupWindow = 2 * time.Second

// InterruptedMarker is appended to the trailing assistant message when a
// turn is interrupted.
const InterruptedMarker = " [interrupted]"

var (
	ErrReadOnly      = errors.New("conversation is read-only")
	ErrGenerating    = errors.New("conversation is already generating")
	ErrNoPendingTool = errors.New("no tool awaiting confirmation")
)

// ConfirmPhase tracks the tool confirmation state machine for one
// conversation. PendingTool is non-nil exactly while the phase is
// ConfirmPending.
type ConfirmPhase int

const (
	ConfirmIdle ConfirmPhase = iota
	ConfirmPending
	ConfirmExecuting
)

func (p ConfirmPhase) String() string {
	switch p {
	case ConfirmPending:
		return "pending"
	case ConfirmExecuting:
		return "executing"
	default:
		return "idle"
	}
}

// State is a point-in-time copy of one conversation's observable record.
type State struct {
	Name        string
	Log         []types.Message
	Generating  bool
	PendingTool *types.PendingTool
	Phase       ConfirmPhase
	Branch      string
	Workspace   string
	ReadOnly    bool
	LastError   string
}

type conversation struct {
	name        string
	log         []types.Message
	generating  bool
	pending     *types.PendingTool
	phase       ConfirmPhase
	lastToolID  string
	branch      string
	workspace   string
	readOnly    bool
	placeholder string
	lastError   string
	watchers    map[int]chan struct{}
	nextWatch   int
}

// Store is the single authority over conversation state. Every mutation,
// whether a decoded protocol event or a local optimistic action, funnels
// through it, so concurrent readers always observe a consistent record.
// Construct one per process and inject it; there is no package-level
// instance.
type Store struct {
	mu     sync.Mutex
	convos map[string]*conversation
	dedup  time.Duration
	log    logging.Logger
}

type StoreOption func(*Store)

func WithDedupWindow(window time.Duration) StoreOption {
	return func(s *Store) {
		if window > 0 {
			s.dedup = window
		}
	}
}

func WithStoreLogger(log logging.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		convos: map[string]*conversation{},
		dedup:  defaultDedupWindow,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// conv returns the record for id, creating it lazily on first access.
// Callers must hold s.mu.
func (s *Store) conv(id string) *conversation {
	c, ok := s.convos[id]
	if !ok {
		c = &conversation{name: id, branch: "main", watchers: map[int]chan struct{}{}}
		s.convos[id] = c
	}
	return c
}

// State returns a copy of the conversation record. The log slice is
// cloned so callers can hold it across later mutations.
func (s *Store) State(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv(id).snapshot()
}

func (c *conversation) snapshot() State {
	st := State{
		Name:       c.name,
		Log:        append([]types.Message{}, c.log...),
		Generating: c.generating,
		Phase:      c.phase,
		Branch:     c.branch,
		Workspace:  c.workspace,
		ReadOnly:   c.readOnly,
		LastError:  c.lastError,
	}
	if c.pending != nil {
		pending := *c.pending
		st.PendingTool = &pending
	}
	return st
}

// SetLog replaces the conversation log wholesale, used when populating
// from a fetched conversation.
func (s *Store) SetLog(id, name string, log []types.Message, branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	if strings.TrimSpace(name) != "" {
		c.name = name
	}
	if strings.TrimSpace(branch) != "" {
		c.branch = branch
	}
	c.log = append([]types.Message{}, log...)
	c.notifyLocked()
}

// Seed installs a local conversation that never reaches the service.
// Seeded conversations are read-only: sends against them are rejected.
func (s *Store) Seed(id, name string, log []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	if strings.TrimSpace(name) != "" {
		c.name = name
	}
	c.log = append([]types.Message{}, log...)
	c.readOnly = true
	c.notifyLocked()
}

// Watch returns a notification channel that receives a tick whenever the
// conversation changes, and a release func. Notifications coalesce: a
// slow consumer sees at least one tick for any burst of changes.
func (s *Store) Watch(id string) (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	c.nextWatch++
	key := c.nextWatch
	ch := make(chan struct{}, 1)
	c.watchers[key] = ch
	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(c.watchers, key)
	}
	return ch, release
}

func (c *conversation) notifyLocked() {
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Apply reconciles one decoded protocol event into the conversation.
// Application is idempotent per event: replaying a complete or toolOutput
// event must not duplicate log entries. Apply never fails; events that
// make no sense in the current state are logged and dropped.
func (s *Store) Apply(id string, ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)

	switch ev.Kind {
	case types.EventToken:
		s.applyToken(id, c, ev.Content)
	case types.EventComplete:
		if ev.Message != nil {
			s.applyComplete(c, *ev.Message)
		}
	case types.EventToolOutput:
		if ev.Message != nil {
			s.appendDeduped(c, *ev.Message)
		}
	case types.EventUserMessage:
		if ev.Message != nil {
			s.appendDeduped(c, *ev.Message)
		}
	case types.EventToolPending:
		if ev.Tool != nil {
			s.applyToolPending(id, c, *ev.Tool)
		}
	case types.EventError:
		c.generating = false
		c.pending = nil
		c.phase = ConfirmIdle
		c.placeholder = ""
		c.lastError = ev.Err
		s.log.Warn("generation error", logging.F("conversation", id), logging.F("err", ev.Err))
	default:
		s.log.Debug("dropping unknown event", logging.F("conversation", id))
		return
	}
	c.notifyLocked()
}

func (s *Store) applyToken(id string, c *conversation, content string) {
	if !c.generating {
		// Late token after an interrupt or completed turn: creating an
		// orphan assistant message here would corrupt the log.
		s.log.Debug("dropping stale token", logging.F("conversation", id))
		return
	}
	if n := len(c.log); n > 0 && c.log[n-1].IsAssistant() && !c.log[n-1].Completed {
		c.log[n-1].Content += content
		return
	}
	msg := types.NewMessage(types.RoleAssistant, content)
	msg.ID = c.placeholder
	c.log = append(c.log, msg)
}

func (s *Store) applyComplete(c *conversation, msg types.Message) {
	msg.Completed = true
	if idx := c.placeholderIndex(); idx >= 0 {
		if msg.ID == "" {
			msg.ID = c.log[idx].ID
		}
		if msg.Content == "" {
			msg.Content = c.log[idx].Content
		}
		c.log[idx] = msg
	} else if n := len(c.log); n > 0 && c.log[n-1].IsAssistant() && !c.log[n-1].Completed {
		if msg.Content == "" {
			msg.Content = c.log[n-1].Content
		}
		c.log[n-1] = msg
	} else if !s.containsSimilar(c.log, msg) {
		c.log = append(c.log, msg)
	}
	c.generating = false
	c.pending = nil
	c.phase = ConfirmIdle
	c.placeholder = ""
}

func (c *conversation) placeholderIndex() int {
	if c.placeholder == "" {
		return -1
	}
	for i := len(c.log) - 1; i >= 0; i-- {
		if c.log[i].ID == c.placeholder {
			return i
		}
	}
	return -1
}

func (s *Store) appendDeduped(c *conversation, msg types.Message) {
	if s.containsSimilar(c.log, msg) {
		return
	}
	c.log = append(c.log, msg)
}

// containsSimilar implements the dedup rule: same role and content with
// timestamps inside the tolerance window identify the same logical
// message. A message without a parseable timestamp on either side matches
// on role and content alone, which errs toward suppressing duplicates.
func (s *Store) containsSimilar(log []types.Message, msg types.Message) bool {
	t := msg.Time()
	for i := range log {
		if log[i].Role != msg.Role || log[i].Content != msg.Content {
			continue
		}
		other := log[i].Time()
		if t.IsZero() || other.IsZero() {
			return true
		}
		diff := t.Sub(other)
		if diff < 0 {
			diff = -diff
		}
		if diff <= s.dedup {
			return true
		}
	}
	return false
}

func (s *Store) applyToolPending(id string, c *conversation, tool types.PendingTool) {
	// Duplicate broadcasts of the same proposal (multi-subscriber fan-out)
	// must not reopen the dialog; a different tool proposed while the
	// previous one executes starts a fresh confirmation round.
	if c.phase == ConfirmPending {
		return
	}
	if tool.ID != "" && tool.ID == c.lastToolID {
		return
	}
	pending := tool
	c.pending = &pending
	c.phase = ConfirmPending
}

// TakePendingTool atomically claims the pending tool for resolution and
// moves the machine to Executing. The descriptor is cleared before any
// network call so a duplicate event cannot raise a second dialog.
func (s *Store) TakePendingTool(id string) (types.PendingTool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	if c.phase != ConfirmPending || c.pending == nil {
		return types.PendingTool{}, false
	}
	tool := *c.pending
	c.pending = nil
	c.phase = ConfirmExecuting
	c.lastToolID = tool.ID
	c.notifyLocked()
	return tool, true
}

// AbandonPendingTool clears a pending tool without resolving it (skip or
// interrupt) and returns the machine to Idle.
func (s *Store) AbandonPendingTool(id string) (types.PendingTool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	if c.pending == nil {
		return types.PendingTool{}, false
	}
	tool := *c.pending
	c.pending = nil
	c.phase = ConfirmIdle
	c.lastToolID = tool.ID
	c.notifyLocked()
	return tool, true
}

// BeginTurn applies the optimistic insert for one user turn: the user
// message plus an empty assistant placeholder, with generation marked
// active. It returns an undo that reverts exactly those mutations,
// recorded as inverse operations rather than a whole-state snapshot, so
// concurrent appends from other sessions survive a rollback.
func (s *Store) BeginTurn(id string, user, placeholder types.Message) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	if c.readOnly {
		return nil, ErrReadOnly
	}
	if c.generating {
		return nil, ErrGenerating
	}

	c.log = append(c.log, user, placeholder)
	c.generating = true
	c.placeholder = placeholder.ID
	c.lastError = ""
	c.notifyLocked()

	undo := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.removeByID(user.ID)
		c.removeByID(placeholder.ID)
		c.generating = false
		c.placeholder = ""
		c.notifyLocked()
	}
	return undo, nil
}

func (c *conversation) removeByID(id string) {
	if id == "" {
		return
	}
	for i := range c.log {
		if c.log[i].ID == id {
			c.log = append(c.log[:i], c.log[i+1:]...)
			return
		}
	}
}

// EndGeneration clears the generating flag without touching the log, used
// when a stream closes without a terminal event.
func (s *Store) EndGeneration(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	if !c.generating {
		return
	}
	c.generating = false
	c.placeholder = ""
	if c.phase == ConfirmExecuting {
		c.phase = ConfirmIdle
	}
	c.notifyLocked()
}

// MarkInterrupted converges the conversation after an interrupt:
// generation off, pending tool abandoned, and the interrupted marker
// appended to the trailing assistant message exactly once.
func (s *Store) MarkInterrupted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	c.generating = false
	c.pending = nil
	c.phase = ConfirmIdle
	c.placeholder = ""
	if n := len(c.log); n > 0 && c.log[n-1].IsAssistant() {
		if !strings.Contains(c.log[n-1].Content, InterruptedMarker) {
			c.log[n-1].Content += InterruptedMarker
		}
	}
	c.notifyLocked()
}

// Generating reports whether a turn is in flight for the conversation.
func (s *Store) Generating(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv(id).generating
}

// ClearError resets the surfaced error once the UI has shown it.
func (s *Store) ClearError(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv(id)
	if c.lastError == "" {
		return
	}
	c.lastError = ""
	c.notifyLocked()
}
