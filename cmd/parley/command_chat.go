package main

import (
	"context"
	"flag"
	"time"

	"parley/internal/app"
	"parley/internal/chat"
	"parley/internal/logging"
	"parley/internal/store"
	"parley/internal/types"
)

type ChatCommand struct {
	wiring commandWiring
}

func NewChatCommand(wiring commandWiring) *ChatCommand {
	return &ChatCommand{wiring: wiring}
}

func (c *ChatCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	create := fs.Bool("new", false, "create the conversation before opening it")
	demo := fs.Bool("demo", false, "open a built-in read-only sample conversation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}

	// The UI owns the terminal, so logs go to a file.
	log, closeLog, err := newFileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := c.wiring.newClient(cfg, log)
	if err != nil {
		return err
	}

	repo, err := c.wiring.openRepo()
	if err != nil {
		log.Warn("local store unavailable, drafts and recents disabled", logging.F("error", err))
		repo = nil
	} else {
		defer repo.Close()
	}

	id := fs.Arg(0)
	if id == "" && !*demo {
		if recent, ok := mostRecentConversation(repo); ok {
			id = recent
		} else {
			// Nothing to resume; start fresh under a timestamp name.
			id = "chat-" + time.Now().Format("20060102-150405")
			*create = true
		}
	}

	engineStore := chat.NewStore(chat.WithDedupWindow(cfg.DedupWindow()), chat.WithStoreLogger(log))
	subs := chat.NewSubscriptions(engineStore, log)
	orch := chat.NewOrchestrator(engineStore, subs, client, log)
	confirm := chat.NewConfirmations(engineStore, client, orch, log)

	ctx := context.Background()
	if *demo {
		id = seedDemoConversation(engineStore)
	} else if *create {
		if err := orch.Create(ctx, id, nil); err != nil {
			return err
		}
	}
	if repo != nil && !*demo {
		err := repo.Recents().Touch(ctx, store.Recent{
			ID:         id,
			Name:       id,
			Server:     cfg.ServerURL(),
			LastOpened: time.Now().UTC(),
		})
		if err != nil {
			log.Warn("recents update failed", logging.F("error", err))
		}
	}

	deps := app.Deps{
		Client:  client,
		Store:   engineStore,
		Subs:    subs,
		Orch:    orch,
		Confirm: confirm,
		Repo:    repo,
		Config:  cfg,
		Log:     log,
	}
	defer subs.CloseAll()
	return c.wiring.runUI(id, deps)
}

func mostRecentConversation(repo store.Repository) (string, bool) {
	if repo == nil {
		return "", false
	}
	recents, err := repo.Recents().List(context.Background())
	if err != nil || len(recents) == 0 {
		return "", false
	}
	return recents[0].ID, true
}

// seedDemoConversation loads a canned read-only transcript so the UI can
// be explored without a running server.
func seedDemoConversation(engineStore *chat.Store) string {
	const id = "demo"
	engineStore.Seed(id, "demo (read-only)", []types.Message{
		types.NewMessage(types.RoleUser, "What does parley do?"),
		types.NewMessage(types.RoleAssistant, "It keeps a local mirror of a server-side conversation: "+
			"optimistic sends, streamed replies, tool confirmations, and interrupts all reconcile "+
			"into one consistent transcript."),
		types.NewMessage(types.RoleUser, "And this conversation?"),
		types.NewMessage(types.RoleAssistant, "This one is seeded locally and read-only, so sending is disabled."),
	})
	return id
}
