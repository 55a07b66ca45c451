package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"parley/internal/app"
	parleyclient "parley/internal/client"
	"parley/internal/config"
	"parley/internal/logging"
	"parley/internal/store"
	"parley/internal/types"
)

var errNoRepo = errors.New("no local store in tests")

type fakeCommandClient struct {
	mu             sync.Mutex
	summaries      []parleyclient.ConversationSummary
	detail         *parleyclient.ConversationDetail
	detailErr      error
	sent           []types.Message
	created        []string
	generateEvents []types.Event
}

func (f *fakeCommandClient) CheckConnection(ctx context.Context) bool { return true }

func (f *fakeCommandClient) CancelPending() {}

func (f *fakeCommandClient) GetConversations(ctx context.Context, limit int) ([]parleyclient.ConversationSummary, error) {
	return f.summaries, nil
}

func (f *fakeCommandClient) GetConversation(ctx context.Context, id string) (*parleyclient.ConversationDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if f.detail != nil {
		return f.detail, nil
	}
	return &parleyclient.ConversationDetail{}, nil
}

func (f *fakeCommandClient) SendMessage(ctx context.Context, id string, msg types.Message, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeCommandClient) Generate(ctx context.Context, id string, req parleyclient.GenerateRequest) (<-chan types.Event, func(), error) {
	events := make(chan types.Event, len(f.generateEvents))
	for _, ev := range f.generateEvents {
		events <- ev
	}
	close(events)
	return events, func() {}, nil
}

func (f *fakeCommandClient) ConfirmTool(ctx context.Context, id string, req parleyclient.ConfirmToolRequest) error {
	return nil
}

func (f *fakeCommandClient) Interrupt(ctx context.Context, id string) error { return nil }

func (f *fakeCommandClient) CreateConversation(ctx context.Context, id string, messages []types.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	return nil
}

func testWiring(stdout, stderr *bytes.Buffer, fake *fakeCommandClient) commandWiring {
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: func() (config.Config, error) { return config.Default(), nil },
		newClient: func(cfg config.Config, log logging.Logger) (commandClient, error) {
			return fake, nil
		},
		openRepo: func() (store.Repository, error) { return nil, errNoRepo },
		runUI:    func(id string, deps app.Deps) error { return nil },
		version:  "test",
	}
}

func TestLSCommandPrintsTable(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		summaries: []parleyclient.ConversationSummary{
			{Name: "notes", Messages: 4, Modified: 1756500000},
			{Name: "scratch", Messages: 1},
		},
	}
	cmd := NewLSCommand(testWiring(stdout, &bytes.Buffer{}, fake))

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "notes") || !strings.Contains(out, "scratch") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLSCommandJSON(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		summaries: []parleyclient.ConversationSummary{{Name: "notes"}},
	}
	cmd := NewLSCommand(testWiring(stdout, &bytes.Buffer{}, fake))

	if err := cmd.Run([]string{"--json"}); err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	if !strings.Contains(stdout.String(), `"name":"notes"`) {
		t.Fatalf("unexpected json output: %q", stdout.String())
	}
}

func TestShowCommandPrintsLog(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		detail: &parleyclient.ConversationDetail{
			Log: []types.Message{
				types.NewMessage(types.RoleUser, "hello"),
				types.NewMessage(types.RoleAssistant, "hi"),
			},
		},
	}
	cmd := NewShowCommand(testWiring(stdout, &bytes.Buffer{}, fake))

	if err := cmd.Run([]string{"notes"}); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "[user] hello") || !strings.Contains(out, "[assistant] hi") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestShowCommandBranchSelection(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		detail: &parleyclient.ConversationDetail{
			Log: []types.Message{types.NewMessage(types.RoleUser, "main line")},
			Branches: map[string][]types.Message{
				"alt": {types.NewMessage(types.RoleUser, "branch line")},
			},
		},
	}
	cmd := NewShowCommand(testWiring(stdout, &bytes.Buffer{}, fake))

	if err := cmd.Run([]string{"--branch", "alt", "notes"}); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "branch line") {
		t.Fatalf("expected branch content, got %q", stdout.String())
	}

	if err := cmd.Run([]string{"--branch", "missing", "notes"}); err == nil {
		t.Fatal("expected error for unknown branch")
	}
}

func TestShowCommandRequiresName(t *testing.T) {
	cmd := NewShowCommand(testWiring(&bytes.Buffer{}, &bytes.Buffer{}, &fakeCommandClient{}))
	if err := cmd.Run(nil); err == nil {
		t.Fatal("expected error without a conversation name")
	}
}

func TestSendCommandStreamsReply(t *testing.T) {
	stdout := &bytes.Buffer{}
	reply := types.NewMessage(types.RoleAssistant, "streamed reply")
	reply.Completed = true
	fake := &fakeCommandClient{
		generateEvents: []types.Event{
			types.TokenEvent("streamed "),
			types.TokenEvent("reply"),
			types.CompleteEvent(reply),
		},
	}
	cmd := NewSendCommand(testWiring(stdout, &bytes.Buffer{}, fake))

	if err := cmd.Run([]string{"notes", "hello", "there"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "streamed reply") {
		t.Fatalf("expected streamed tokens, got %q", stdout.String())
	}
	if len(fake.sent) != 1 || fake.sent[0].Content != "hello there" {
		t.Fatalf("unexpected sent messages %+v", fake.sent)
	}
}

func TestSendCommandRequiresMessage(t *testing.T) {
	cmd := NewSendCommand(testWiring(&bytes.Buffer{}, &bytes.Buffer{}, &fakeCommandClient{}))
	if err := cmd.Run([]string{"notes"}); err == nil {
		t.Fatal("expected error without a message")
	}
}

func TestSendCommandSurfacesStreamError(t *testing.T) {
	fake := &fakeCommandClient{
		generateEvents: []types.Event{types.ErrorEvent("model unavailable")},
	}
	cmd := NewSendCommand(testWiring(&bytes.Buffer{}, &bytes.Buffer{}, fake))

	err := cmd.Run([]string{"notes", "hello"})
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected stream error, got %v", err)
	}
}

func TestConfigCommandDefaults(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewConfigCommand(testWiring(stdout, &bytes.Buffer{}, &fakeCommandClient{}))

	if err := cmd.Run([]string{"--defaults"}); err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "127.0.0.1:5700") {
		t.Fatalf("expected default server url, got %q", stdout.String())
	}
}

func TestConfigCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewConfigCommand(testWiring(&bytes.Buffer{}, &bytes.Buffer{}, &fakeCommandClient{}))
	if err := cmd.Run([]string{"--format", "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestVersionCommand(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewVersionCommand(testWiring(stdout, &bytes.Buffer{}, &fakeCommandClient{}))
	if err := cmd.Run(nil); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "test" {
		t.Fatalf("unexpected version output %q", stdout.String())
	}
}

func TestChatCommandStartsFreshWithoutRecents(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	fake := &fakeCommandClient{}
	var opened string
	wiring := testWiring(&bytes.Buffer{}, &bytes.Buffer{}, fake)
	wiring.runUI = func(id string, deps app.Deps) error {
		opened = id
		return nil
	}
	cmd := NewChatCommand(wiring)

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !strings.HasPrefix(opened, "chat-") {
		t.Fatalf("expected timestamp-named conversation, got %q", opened)
	}
	if len(fake.created) != 1 || fake.created[0] != opened {
		t.Fatalf("expected conversation created on the server, got %+v", fake.created)
	}
}

func TestChatCommandDemoIsReadOnly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var deps app.Deps
	var opened string
	wiring := testWiring(&bytes.Buffer{}, &bytes.Buffer{}, &fakeCommandClient{})
	wiring.runUI = func(id string, d app.Deps) error {
		opened = id
		deps = d
		return nil
	}
	cmd := NewChatCommand(wiring)

	if err := cmd.Run([]string{"--demo"}); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if opened != "demo" {
		t.Fatalf("expected demo conversation, got %q", opened)
	}
	state := deps.Store.State("demo")
	if !state.ReadOnly {
		t.Fatal("expected demo conversation to be read-only")
	}
	if len(state.Log) == 0 {
		t.Fatal("expected seeded transcript")
	}
}

func TestChatCommandCreatesAndOpensConversation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	fake := &fakeCommandClient{}
	var opened string
	wiring := testWiring(&bytes.Buffer{}, &bytes.Buffer{}, fake)
	wiring.runUI = func(id string, deps app.Deps) error {
		opened = id
		return nil
	}
	cmd := NewChatCommand(wiring)

	if err := cmd.Run([]string{"--new", "scratch"}); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if opened != "scratch" {
		t.Fatalf("expected UI opened for scratch, got %q", opened)
	}
	if len(fake.created) != 1 || fake.created[0] != "scratch" {
		t.Fatalf("unexpected creates %+v", fake.created)
	}
}
