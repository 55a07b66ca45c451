package types

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one entry in a conversation log. Timestamps travel as RFC 3339
// strings on the wire; Time() parses lazily and returns the zero time for
// anything unparseable.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func (m Message) Time() time.Time {
	if m.Timestamp == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, m.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}
