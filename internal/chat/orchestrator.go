package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"parley/internal/client"
	"parley/internal/logging"
	"parley/internal/types"
)

// Service is the slice of the transport the engine drives. *client.Client
// satisfies it; tests substitute fakes.
type Service interface {
	SendMessage(ctx context.Context, id string, msg types.Message, branch string) error
	Generate(ctx context.Context, id string, req client.GenerateRequest) (<-chan types.Event, func(), error)
	ConfirmTool(ctx context.Context, id string, req client.ConfirmToolRequest) error
	Interrupt(ctx context.Context, id string) error
	GetConversation(ctx context.Context, id string) (*client.ConversationDetail, error)
	CreateConversation(ctx context.Context, id string, messages []types.Message) error
}

// Orchestrator coordinates one user turn: optimistic insert, network
// send, stream consumption, and finalize or rollback. It owns the
// at-most-one-generation-per-conversation rule.
type Orchestrator struct {
	store *Store
	subs  *Subscriptions
	svc   Service
	log   logging.Logger
}

func NewOrchestrator(store *Store, subs *Subscriptions, svc Service, log logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{store: store, subs: subs, svc: svc, log: log}
}

type SendOptions struct {
	Model  string
	Branch string
}

var ErrEmptyMessage = errors.New("message is empty")

// Send runs the full turn lifecycle and blocks until generation ends.
// The optimistic insert is applied before any network call; a failed send
// rolls it back via its recorded inverse and no generation is started.
func (o *Orchestrator) Send(ctx context.Context, id, text string, opts SendOptions) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	user := types.NewMessage(types.RoleUser, text)
	user.ID = uuid.NewString()
	placeholder := types.NewMessage(types.RoleAssistant, "")
	placeholder.ID = uuid.NewString()

	undo, err := o.store.BeginTurn(id, user, placeholder)
	if err != nil {
		return err
	}

	branch := o.branchFor(id, opts)
	if err := o.svc.SendMessage(ctx, id, user, branch); err != nil {
		undo()
		if client.IsAbort(err) {
			return nil
		}
		o.log.Warn("send failed", logging.F("conversation", id), logging.F("err", err))
		return err
	}

	return o.generate(ctx, id, opts)
}

func (o *Orchestrator) generate(ctx context.Context, id string, opts SendOptions) error {
	req := client.GenerateRequest{Model: opts.Model, Branch: o.branchFor(id, opts)}
	events, cancel, err := o.svc.Generate(ctx, id, req)
	if err != nil {
		o.store.EndGeneration(id)
		if client.IsAbort(err) {
			return nil
		}
		return err
	}

	// Attach replaces any previous stream for this conversation, keeping a
	// single live connection per id.
	done := o.subs.Attach(id, events, cancel)
	<-done

	// The stream can close without a terminal event (server went away,
	// stream canceled); converge rather than leaving the turn dangling.
	o.store.EndGeneration(id)
	return nil
}

// Interrupt stops the current turn: the pending tool (if any) is
// abandoned without resolution, the service is notified best-effort, and
// local state converges regardless of what the network did.
func (o *Orchestrator) Interrupt(ctx context.Context, id string) error {
	if tool, ok := o.store.AbandonPendingTool(id); ok {
		o.log.Debug("abandoning pending tool", logging.F("conversation", id), logging.F("tool", tool.Tool))
	}
	if err := o.svc.Interrupt(ctx, id); err != nil && !client.IsAbort(err) {
		o.log.Warn("interrupt notify failed", logging.F("conversation", id), logging.F("err", err))
	}
	o.subs.Close(id)
	o.store.MarkInterrupted(id)
	return nil
}

// Load fetches the conversation log from the service into the store.
func (o *Orchestrator) Load(ctx context.Context, id string) error {
	detail, err := o.svc.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	o.store.SetLog(id, id, detail.Log, "")
	return nil
}

// Create registers a new conversation with the service and mirrors the
// initial messages locally.
func (o *Orchestrator) Create(ctx context.Context, id string, messages []types.Message) error {
	if err := o.svc.CreateConversation(ctx, id, messages); err != nil {
		return err
	}
	o.store.SetLog(id, id, messages, "")
	return nil
}

func (o *Orchestrator) branchFor(id string, opts SendOptions) string {
	if strings.TrimSpace(opts.Branch) != "" {
		return opts.Branch
	}
	return o.store.State(id).Branch
}
