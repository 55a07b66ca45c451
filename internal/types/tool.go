package types

// PendingTool describes a proposed tool invocation awaiting a human
// decision. It exists only while the conversation is paused for
// confirmation; any resolving action or an interrupt destroys it.
type PendingTool struct {
	ID      string   `json:"id"`
	Tool    string   `json:"tool"`
	Args    []string `json:"args,omitempty"`
	Content string   `json:"content"`
}

type ToolAction string

const (
	ToolActionConfirm ToolAction = "confirm"
	ToolActionEdit    ToolAction = "edit"
	ToolActionSkip    ToolAction = "skip"
	ToolActionAuto    ToolAction = "auto"
)
