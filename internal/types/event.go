package types

// EventKind discriminates the protocol events decoded from the generation
// stream. Events are transient: the store consumes them immediately and
// never persists them.
type EventKind int

const (
	EventToken EventKind = iota
	EventComplete
	EventToolPending
	EventToolOutput
	EventUserMessage
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventToken:
		return "token"
	case EventComplete:
		return "complete"
	case EventToolPending:
		return "toolPending"
	case EventToolOutput:
		return "toolOutput"
	case EventUserMessage:
		return "userMessage"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the tagged union carried from the frame decoder to the store.
// Exactly one payload field is meaningful for a given Kind:
// Content for EventToken, Message for EventComplete/EventToolOutput/
// EventUserMessage, Tool for EventToolPending, and Err for EventError.
type Event struct {
	Kind    EventKind
	Content string
	Message *Message
	Tool    *PendingTool
	Err     string
}

func TokenEvent(content string) Event {
	return Event{Kind: EventToken, Content: content}
}

func CompleteEvent(msg Message) Event {
	return Event{Kind: EventComplete, Message: &msg}
}

func ToolPendingEvent(tool PendingTool) Event {
	return Event{Kind: EventToolPending, Tool: &tool}
}

func ToolOutputEvent(msg Message) Event {
	return Event{Kind: EventToolOutput, Message: &msg}
}

func UserMessageEvent(msg Message) Event {
	return Event{Kind: EventUserMessage, Message: &msg}
}

func ErrorEvent(msg string) Event {
	return Event{Kind: EventError, Err: msg}
}
