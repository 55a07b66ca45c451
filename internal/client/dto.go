package client

import "parley/internal/types"

type ConversationSummary struct {
	Name     string  `json:"name"`
	Modified float64 `json:"modified"`
	Messages int     `json:"messages"`
}

type ConversationDetail struct {
	Log      []types.Message            `json:"log"`
	LogFile  string                     `json:"logfile,omitempty"`
	Branches map[string][]types.Message `json:"branches,omitempty"`
}

type CreateConversationRequest struct {
	Messages []types.Message `json:"messages"`
}

type AppendMessageRequest struct {
	Role      types.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
	Branch    string     `json:"branch,omitempty"`
}

type GenerateRequest struct {
	Model  string `json:"model,omitempty"`
	Branch string `json:"branch"`
	Stream bool   `json:"stream"`
}

type ConfirmToolRequest struct {
	ToolID  string           `json:"toolId"`
	Action  types.ToolAction `json:"action"`
	Content string           `json:"content,omitempty"`
	Count   int              `json:"count,omitempty"`
}
