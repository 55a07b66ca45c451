package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/internal/chat"
	"parley/internal/client"
	"parley/internal/config"
	"parley/internal/logging"
	"parley/internal/store"
	"parley/internal/types"
)

const (
	maxViewportLines  = 2000
	maxEventsPerTick  = 64
	tickInterval      = 100 * time.Millisecond
	connCheckInterval = 5 * time.Second
	minViewportWidth  = 20
	minContentHeight  = 6
)

type uiMode int

const (
	uiModeNormal uiMode = iota
	uiModeToolPrompt
	uiModeToolEdit
)

// Connectivity is the slice of the transport the UI polls for its
// online indicator and cancels on shutdown.
type Connectivity interface {
	CheckConnection(ctx context.Context) bool
	CancelPending()
}

// Deps carries the assembled engine into the UI. The model owns no
// conversation state of its own; everything it renders is a store
// snapshot taken on the current tick.
type Deps struct {
	Client  Connectivity
	Store   *chat.Store
	Subs    *chat.Subscriptions
	Orch    *chat.Orchestrator
	Confirm *chat.Confirmations
	Repo    store.Repository
	Config  config.Config
	Log     logging.Logger
}

type Model struct {
	id          string
	deps        Deps
	viewport    viewport.Model
	input       *ChatInput
	loader      spinner.Model
	transcript  *ChatTranscript
	feed        *EventFeed
	unsubscribe func()
	mode        uiMode
	width       int
	height      int
	follow      bool
	connected   bool
	sending     bool
	status      string
	statusErr   bool
	savedInput  string
	quitting    bool
}

func NewModel(conversationID string, deps Deps) *Model {
	if deps.Log == nil {
		deps.Log = logging.Nop()
	}
	vp := viewport.New(minViewportWidth, minContentHeight)
	loader := spinner.New()
	loader.Spinner = spinner.MiniDot

	input := NewChatInput(minViewportWidth)
	input.SetPlaceholder("Type a message")
	input.Focus()

	feed := NewEventFeed(deps.Config.StreamBuffer(), maxEventsPerTick)
	m := &Model{
		id:         conversationID,
		deps:       deps,
		viewport:   vp,
		input:      input,
		loader:     loader,
		transcript: NewChatTranscript(minViewportWidth, maxViewportLines),
		feed:       feed,
		mode:       uiModeNormal,
		follow:     true,
	}
	m.unsubscribe = deps.Subs.Subscribe(conversationID, feed.Callbacks())
	return m
}

// Run drives the chat view until the user quits.
func Run(conversationID string, deps Deps) error {
	model := NewModel(conversationID, deps)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadConversationCmd(),
		m.loadDraftCmd(),
		m.checkConnectionCmd(),
		m.loader.Tick,
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.drainFeed()
		m.syncMode()
		m.refreshContent()
		return m, tick()

	case connCheckMsg:
		m.connected = msg.connected
		return m, tea.Tick(connCheckInterval, func(time.Time) tea.Msg {
			return connCheckMsg{connected: m.deps.Client.CheckConnection(context.Background())}
		})

	case draftLoadedMsg:
		if msg.text != "" && m.input.Value() == "" {
			m.input.SetValue(msg.text)
		}
		return m, nil

	case conversationLoadedMsg:
		if msg.err != nil {
			m.setError("load failed: " + msg.err.Error())
		} else {
			m.clearStatus()
		}
		m.refreshContent()
		return m, nil

	case sendFinishedMsg:
		m.sending = false
		if msg.err != nil {
			m.setError(sendErrorText(msg.err))
		}
		m.refreshContent()
		return m, nil

	case interruptFinishedMsg:
		if msg.err != nil {
			m.setError("interrupt failed: " + msg.err.Error())
		} else {
			m.setInfo("interrupted")
		}
		m.refreshContent()
		return m, nil

	case toolResolvedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("tool %s failed: %v", msg.action, msg.err))
		} else {
			m.setInfo("tool " + string(msg.action))
		}
		m.syncMode()
		m.refreshContent()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	}

	return m, m.input.Update(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, m.quitCmd()
	case "ctrl+y":
		m.copyLastReply()
		return m, nil
	case "pgup":
		m.follow = false
		m.viewport.LineUp(m.viewport.Height)
		return m, nil
	case "pgdown":
		m.viewport.LineDown(m.viewport.Height)
		if m.viewport.AtBottom() {
			m.follow = true
		}
		return m, nil
	}

	switch m.mode {
	case uiModeToolPrompt:
		return m.handleToolPromptKey(msg)
	case uiModeToolEdit:
		return m.handleToolEditKey(msg)
	}

	switch msg.String() {
	case "enter":
		return m, m.sendCmd()
	case "esc":
		if m.deps.Store.Generating(m.id) {
			return m, m.interruptCmd()
		}
		m.clearStatus()
		return m, nil
	}
	return m, m.input.Update(msg)
}

func (m *Model) handleToolPromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return m, m.toolActionCmd(types.ToolActionConfirm, func(ctx context.Context) error {
			return m.deps.Confirm.Confirm(ctx, m.id)
		})
	case "s", "S", "n", "N":
		return m, m.toolActionCmd(types.ToolActionSkip, func(ctx context.Context) error {
			return m.deps.Confirm.Skip(ctx, m.id)
		})
	case "a", "A":
		count := m.deps.Config.Chat.AutoConfirm
		return m, m.toolActionCmd(types.ToolActionAuto, func(ctx context.Context) error {
			return m.deps.Confirm.Auto(ctx, m.id, count)
		})
	case "e", "E":
		state := m.deps.Store.State(m.id)
		if state.PendingTool == nil {
			return m, nil
		}
		m.savedInput = m.input.Value()
		m.input.SetValue(state.PendingTool.Content)
		m.input.SetPlaceholder("Edit tool input, enter to run")
		m.input.Focus()
		m.mode = uiModeToolEdit
		return m, nil
	case "esc":
		return m, m.interruptCmd()
	}
	return m, nil
}

func (m *Model) handleToolEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		content := m.input.Value()
		m.restoreInput()
		return m, m.toolActionCmd(types.ToolActionEdit, func(ctx context.Context) error {
			return m.deps.Confirm.Edit(ctx, m.id, content)
		})
	case "esc":
		m.restoreInput()
		m.mode = uiModeToolPrompt
		return m, nil
	}
	return m, m.input.Update(msg)
}

func (m *Model) restoreInput() {
	m.input.SetValue(m.savedInput)
	m.savedInput = ""
	m.input.SetPlaceholder("Type a message")
}

// syncMode reconciles the UI mode with the confirmation phase so a tool
// request arriving (or resolving) on any path moves the prompt in and out
// without an explicit keypress.
func (m *Model) syncMode() {
	state := m.deps.Store.State(m.id)
	pending := state.PendingTool != nil && state.Phase == chat.ConfirmPending
	switch {
	case pending && m.mode == uiModeNormal:
		m.mode = uiModeToolPrompt
		m.input.Blur()
	case !pending && m.mode != uiModeNormal:
		if m.mode == uiModeToolEdit {
			m.restoreInput()
		}
		m.mode = uiModeNormal
		m.input.Focus()
	}
}

func (m *Model) drainFeed() {
	events, _ := m.feed.ConsumeTick()
	for _, ev := range events {
		if ev.Kind == types.EventError && ev.Err != "" {
			m.setError(ev.Err)
		}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	contentWidth := width
	if contentWidth < minViewportWidth {
		contentWidth = minViewportWidth
	}
	contentHeight := height - 4
	if contentHeight < 1 {
		contentHeight = 1
	}
	m.viewport.Width = contentWidth
	m.viewport.Height = contentHeight
	m.transcript.Resize(contentWidth)
	m.input.Resize(contentWidth)
}

func (m *Model) refreshContent() {
	state := m.deps.Store.State(m.id)
	lines := m.transcript.Render(state.Log, pendingForRender(state))
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func pendingForRender(state chat.State) *types.PendingTool {
	if state.Phase == chat.ConfirmIdle {
		return nil
	}
	return state.PendingTool
}

func (m *Model) copyLastReply() {
	state := m.deps.Store.State(m.id)
	for i := len(state.Log) - 1; i >= 0; i-- {
		if state.Log[i].IsAssistant() && strings.TrimSpace(state.Log[i].Content) != "" {
			if _, err := copyTextToClipboard(state.Log[i].Content); err != nil {
				m.setError("copy failed: " + err.Error())
			} else {
				m.setInfo("reply copied")
			}
			return
		}
	}
	m.setInfo("nothing to copy")
}

func (m *Model) loadConversationCmd() tea.Cmd {
	// Seeded read-only conversations live only in the store; a server
	// fetch would overwrite them.
	if m.deps.Store.State(m.id).ReadOnly {
		return nil
	}
	return func() tea.Msg {
		return conversationLoadedMsg{err: m.deps.Orch.Load(context.Background(), m.id)}
	}
}

func (m *Model) loadDraftCmd() tea.Cmd {
	if m.deps.Repo == nil {
		return nil
	}
	return func() tea.Msg {
		text, err := m.deps.Repo.Drafts().Get(context.Background(), m.id)
		if err != nil {
			m.deps.Log.Warn("draft load failed", logging.F("error", err))
			return nil
		}
		return draftLoadedMsg{text: text}
	}
}

func (m *Model) checkConnectionCmd() tea.Cmd {
	return func() tea.Msg {
		return connCheckMsg{connected: m.deps.Client.CheckConnection(context.Background())}
	}
}

func (m *Model) sendCmd() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.sending {
		return nil
	}
	state := m.deps.Store.State(m.id)
	if state.Generating {
		m.setInfo("still generating, esc to interrupt")
		return nil
	}
	if state.ReadOnly {
		m.setError("conversation is read-only")
		return nil
	}
	m.sending = true
	m.follow = true
	m.input.Clear()
	m.clearStatus()
	opts := chat.SendOptions{Model: m.deps.Config.Model()}
	return func() tea.Msg {
		if m.deps.Repo != nil {
			_ = m.deps.Repo.Drafts().Delete(context.Background(), m.id)
		}
		return sendFinishedMsg{err: m.deps.Orch.Send(context.Background(), m.id, text, opts)}
	}
}

func (m *Model) interruptCmd() tea.Cmd {
	return func() tea.Msg {
		return interruptFinishedMsg{err: m.deps.Orch.Interrupt(context.Background(), m.id)}
	}
}

func (m *Model) toolActionCmd(action types.ToolAction, run func(context.Context) error) tea.Cmd {
	m.mode = uiModeNormal
	m.input.Focus()
	return func() tea.Msg {
		return toolResolvedMsg{action: action, err: run(context.Background())}
	}
}

func (m *Model) quitCmd() tea.Cmd {
	m.quitting = true
	draft := m.input.Value()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	return tea.Sequence(
		func() tea.Msg {
			if m.deps.Repo != nil {
				if err := m.deps.Repo.Drafts().Put(context.Background(), m.id, draft); err != nil {
					m.deps.Log.Warn("draft save failed", logging.F("error", err))
				}
			}
			m.deps.Client.CancelPending()
			return nil
		},
		tea.Quit,
	)
}

func sendErrorText(err error) string {
	if errors.Is(err, chat.ErrGenerating) {
		return "already generating"
	}
	if errors.Is(err, chat.ErrReadOnly) {
		return "conversation is read-only"
	}
	if apiErr := client.AsAPIError(err); apiErr != nil {
		return apiErr.Message
	}
	return "send failed: " + err.Error()
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
}

func (m *Model) setInfo(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusErr = false
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m *Model) headerView() string {
	state := m.deps.Store.State(m.id)
	name := state.Name
	if name == "" {
		name = m.id
	}
	parts := []string{headerStyle.Render(name)}
	if state.ReadOnly {
		parts = append(parts, readOnlyStyle.Render("read-only"))
	}
	if m.connected {
		parts = append(parts, connectedStyle.Render("online"))
	} else {
		parts = append(parts, offlineStyle.Render("offline"))
	}
	if state.Generating {
		parts = append(parts, m.loader.View()+" generating")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, "  "))
}

func (m *Model) statusView() string {
	if m.status == "" {
		return statusStyle.Render(" ")
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}

func (m *Model) footerView() string {
	switch m.mode {
	case uiModeToolPrompt:
		state := m.deps.Store.State(m.id)
		name := "tool"
		if state.PendingTool != nil {
			name = state.PendingTool.Tool
		}
		prompt := toolPromptStyle.Render(fmt.Sprintf(" run %s? ", name))
		return prompt + " " + helpStyle.Render("y run  e edit  s skip  a auto  esc interrupt")
	case uiModeToolEdit:
		return m.input.View() + "\n" + helpStyle.Render("enter run edited  esc back")
	default:
		return m.input.View() + "\n" + helpStyle.Render("enter send  esc interrupt  ctrl+y copy reply  ctrl+c quit")
	}
}
