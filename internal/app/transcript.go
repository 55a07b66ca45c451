package app

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"parley/internal/types"
)

// ChatTranscript turns a conversation log into display lines for the
// viewport. It is rebuilt from a state snapshot on every change; the
// snapshot is small enough that incremental patching is not worth the
// bookkeeping.
type ChatTranscript struct {
	width    int
	maxLines int
	lines    []string
}

func NewChatTranscript(width, maxLines int) *ChatTranscript {
	return &ChatTranscript{width: width, maxLines: maxLines}
}

func (t *ChatTranscript) Resize(width int) {
	if t == nil {
		return
	}
	t.width = width
}

func (t *ChatTranscript) Lines() []string {
	if t == nil {
		return nil
	}
	return t.lines
}

func (t *ChatTranscript) Render(log []types.Message, pending *types.PendingTool) []string {
	if t == nil {
		return nil
	}
	lines := make([]string, 0, len(log)*3)
	for _, msg := range log {
		if strings.TrimSpace(msg.Content) == "" && msg.ID != "" && !msg.Completed {
			// Placeholder for a reply that has not produced output yet.
			lines = append(lines, agentLabelStyle.Render(roleLabel(msg.Role)), statusStyle.Render("..."), "")
			continue
		}
		lines = append(lines, styledRoleLabel(msg.Role))
		lines = append(lines, t.wrap(msg.Content)...)
		lines = append(lines, "")
	}
	if pending != nil {
		lines = append(lines, toolLabelStyle.Render("Tool request: "+pending.Tool))
		if len(pending.Args) > 0 {
			lines = append(lines, t.wrap(strings.Join(pending.Args, " "))...)
		}
		if strings.TrimSpace(pending.Content) != "" {
			lines = append(lines, t.wrap(pending.Content)...)
		}
		lines = append(lines, "")
	}
	t.lines = trimLines(lines, t.maxLines)
	return t.lines
}

func styledRoleLabel(role types.Role) string {
	label := roleLabel(role)
	switch role {
	case types.RoleUser:
		return userLabelStyle.Render(label)
	case types.RoleAssistant:
		return agentLabelStyle.Render(label)
	default:
		return toolLabelStyle.Render(label)
	}
}

func roleLabel(role types.Role) string {
	switch role {
	case types.RoleUser:
		return "You"
	case types.RoleAssistant:
		return "Agent"
	case types.RoleSystem:
		return "System"
	case types.RoleTool:
		return "Tool"
	default:
		return string(role)
	}
}

// wrap splits content into lines no wider than the transcript width,
// measuring display cells so CJK and emoji do not overflow the viewport.
func (t *ChatTranscript) wrap(content string) []string {
	width := t.width
	if width < 8 {
		width = 8
	}
	var out []string
	for _, raw := range strings.Split(content, "\n") {
		out = append(out, wrapLine(raw, width)...)
	}
	if len(out) == 0 {
		out = append(out, "")
	}
	return out
}

func wrapLine(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}
	var out []string
	var builder strings.Builder
	cells := 0
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if cells+w > width && builder.Len() > 0 {
			out = append(out, builder.String())
			builder.Reset()
			cells = 0
		}
		builder.WriteRune(r)
		cells += w
	}
	if builder.Len() > 0 {
		out = append(out, builder.String())
	}
	return out
}

func trimLines(lines []string, maxLines int) []string {
	if maxLines <= 0 || len(lines) <= maxLines {
		return lines
	}
	return lines[len(lines)-maxLines:]
}
