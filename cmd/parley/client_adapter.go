package main

import (
	"context"

	"parley/internal/chat"
	parleyclient "parley/internal/client"
	"parley/internal/config"
	"parley/internal/logging"
)

type clientFactory func(cfg config.Config, log logging.Logger) (commandClient, error)

// commandClient is the slice of the transport the commands use. It
// embeds the engine's service surface so a command can drive a full
// turn through the same orchestration path the UI uses.
type commandClient interface {
	chat.Service
	CheckConnection(ctx context.Context) bool
	GetConversations(ctx context.Context, limit int) ([]parleyclient.ConversationSummary, error)
	CancelPending()
}

func newParleyClient(cfg config.Config, log logging.Logger) (commandClient, error) {
	return parleyclient.New(cfg.ServerURL(), parleyclient.WithLogger(log)), nil
}
