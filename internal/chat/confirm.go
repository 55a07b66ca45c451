package chat

import (
	"context"
	"errors"

	"parley/internal/client"
	"parley/internal/logging"
	"parley/internal/types"
)

// Confirmations exposes the resolving actions of the tool confirmation
// state machine. Every action claims the pending descriptor atomically
// before touching the network, so the dialog cannot reopen from a
// duplicate broadcast and the UI can never be left stuck on a failed
// call.
type Confirmations struct {
	store *Store
	svc   Service
	orch  *Orchestrator
	log   logging.Logger
}

func NewConfirmations(store *Store, svc Service, orch *Orchestrator, log logging.Logger) *Confirmations {
	if log == nil {
		log = logging.Nop()
	}
	return &Confirmations{store: store, svc: svc, orch: orch, log: log}
}

// Confirm approves the pending tool with its original content and lets
// generation resume.
func (c *Confirmations) Confirm(ctx context.Context, id string) error {
	tool, ok := c.store.TakePendingTool(id)
	if !ok {
		return ErrNoPendingTool
	}
	return c.resolve(ctx, id, client.ConfirmToolRequest{
		ToolID:  tool.ID,
		Action:  types.ToolActionConfirm,
		Content: tool.Content,
	})
}

// Edit approves the pending tool with modified content in place of the
// original.
func (c *Confirmations) Edit(ctx context.Context, id, content string) error {
	tool, ok := c.store.TakePendingTool(id)
	if !ok {
		return ErrNoPendingTool
	}
	return c.resolve(ctx, id, client.ConfirmToolRequest{
		ToolID:  tool.ID,
		Action:  types.ToolActionEdit,
		Content: content,
	})
}

// Auto approves the pending tool and instructs the service to approve up
// to count further tool calls without prompting.
func (c *Confirmations) Auto(ctx context.Context, id string, count int) error {
	tool, ok := c.store.TakePendingTool(id)
	if !ok {
		return ErrNoPendingTool
	}
	if count < 1 {
		count = 1
	}
	return c.resolve(ctx, id, client.ConfirmToolRequest{
		ToolID:  tool.ID,
		Action:  types.ToolActionAuto,
		Content: tool.Content,
		Count:   count,
	})
}

// Skip rejects the pending tool. Skipping aborts the turn rather than
// resuming it, so an interrupt follows the rejection.
func (c *Confirmations) Skip(ctx context.Context, id string) error {
	tool, ok := c.store.AbandonPendingTool(id)
	if !ok {
		return ErrNoPendingTool
	}
	err := c.svc.ConfirmTool(ctx, id, client.ConfirmToolRequest{
		ToolID: tool.ID,
		Action: types.ToolActionSkip,
	})
	switch {
	case errors.Is(err, client.ErrConfirmationUnavailable):
		c.log.Debug("legacy service, skipping via interrupt", logging.F("conversation", id))
	case err != nil && !client.IsAbort(err):
		c.log.Warn("skip notify failed", logging.F("conversation", id), logging.F("err", err))
	}
	return c.orch.Interrupt(ctx, id)
}

// resolve submits a confirm/edit/auto action. The pending descriptor is
// already cleared; a legacy service (no confirmation endpoint) degrades
// to continuing without explicit confirmation, and any other failure is
// surfaced after local state has converged.
func (c *Confirmations) resolve(ctx context.Context, id string, req client.ConfirmToolRequest) error {
	err := c.svc.ConfirmTool(ctx, id, req)
	if err == nil {
		return nil
	}
	if errors.Is(err, client.ErrConfirmationUnavailable) {
		c.log.Debug("legacy service, continuing without confirmation", logging.F("conversation", id))
		return nil
	}
	if client.IsAbort(err) {
		return nil
	}
	c.log.Warn("tool confirmation failed",
		logging.F("conversation", id),
		logging.F("action", string(req.Action)),
		logging.F("err", err))
	return err
}
