package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"parley/internal/types"
)

// framePayload is the superset of fields a stream frame may carry. The
// service does not tag frames with an explicit type; classification is by
// which fields are present.
type framePayload struct {
	Error     string     `json:"error"`
	Stored    *bool      `json:"stored"`
	Role      types.Role `json:"role"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
	ID        string     `json:"id"`
	Tool      string     `json:"tool"`
	Args      []string   `json:"args"`
}

var errUnknownFrame = errors.New("unrecognized frame shape")

// DecodeFrame classifies one stream frame payload into a protocol event:
//
//   - an error field marks a server-side failure mid-stream
//   - a tool field marks a tool call awaiting confirmation
//   - stored == false marks a partial-content token
//   - a role marks a complete message, routed to toolOutput for
//     system/tool roles and userMessage for echoes of user messages
//
// Anything else is rejected rather than silently misrouted.
func DecodeFrame(data []byte) (types.Event, error) {
	var payload framePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return types.Event{}, fmt.Errorf("decode frame: %w", err)
	}

	switch {
	case payload.Error != "":
		return types.ErrorEvent(payload.Error), nil
	case strings.TrimSpace(payload.Tool) != "":
		return types.ToolPendingEvent(types.PendingTool{
			ID:      payload.ID,
			Tool:    payload.Tool,
			Args:    payload.Args,
			Content: payload.Content,
		}), nil
	case payload.Stored != nil && !*payload.Stored:
		return types.TokenEvent(payload.Content), nil
	case payload.Role != "":
		msg := types.Message{
			Role:      payload.Role,
			Content:   payload.Content,
			Timestamp: payload.Timestamp,
			ID:        payload.ID,
			Completed: true,
		}
		switch payload.Role {
		case types.RoleSystem, types.RoleTool:
			return types.ToolOutputEvent(msg), nil
		case types.RoleUser:
			return types.UserMessageEvent(msg), nil
		default:
			return types.CompleteEvent(msg), nil
		}
	default:
		return types.Event{}, errUnknownFrame
	}
}
