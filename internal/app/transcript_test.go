package app

import (
	"strings"
	"testing"

	"parley/internal/types"
)

func TestRenderShowsRolesAndContent(t *testing.T) {
	tr := NewChatTranscript(40, 100)
	log := []types.Message{
		types.NewMessage(types.RoleUser, "hello"),
		types.NewMessage(types.RoleAssistant, "hi there"),
	}
	lines := tr.Render(log, nil)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "You") {
		t.Fatalf("missing user label: %q", joined)
	}
	if !strings.Contains(joined, "hello") || !strings.Contains(joined, "hi there") {
		t.Fatalf("missing content: %q", joined)
	}
}

func TestRenderShowsPlaceholderAsTyping(t *testing.T) {
	tr := NewChatTranscript(40, 100)
	placeholder := types.NewMessage(types.RoleAssistant, "")
	placeholder.ID = "placeholder-1"
	lines := tr.Render([]types.Message{placeholder}, nil)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "...") {
		t.Fatalf("expected typing indicator, got %q", joined)
	}
}

func TestRenderShowsPendingTool(t *testing.T) {
	tr := NewChatTranscript(40, 100)
	tool := &types.PendingTool{ID: "t1", Tool: "run_command", Args: []string{"ls", "-la"}, Content: "ls -la"}
	lines := tr.Render(nil, tool)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "run_command") {
		t.Fatalf("missing tool name: %q", joined)
	}
	if !strings.Contains(joined, "ls -la") {
		t.Fatalf("missing tool args: %q", joined)
	}
}

func TestRenderTrimsToMaxLines(t *testing.T) {
	tr := NewChatTranscript(40, 5)
	var log []types.Message
	for i := 0; i < 10; i++ {
		log = append(log, types.NewMessage(types.RoleUser, "line"))
	}
	lines := tr.Render(log, nil)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
}

func TestWrapLineMeasuresCells(t *testing.T) {
	lines := wrapLine("abcdefghij", 4)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "abcd" {
		t.Fatalf("unexpected first line %q", lines[0])
	}

	// Wide runes take two cells each.
	wide := wrapLine("你好世界", 4)
	if len(wide) != 2 {
		t.Fatalf("expected 2 lines for wide runes, got %d: %v", len(wide), wide)
	}
}

func TestWrapPreservesEmbeddedNewlines(t *testing.T) {
	tr := NewChatTranscript(40, 100)
	out := tr.wrap("first\nsecond")
	if len(out) != 2 || out[0] != "first" || out[1] != "second" {
		t.Fatalf("unexpected wrap output %v", out)
	}
}
