package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"parley/internal/chat"
	"parley/internal/logging"
	"parley/internal/types"
)

type SendCommand struct {
	wiring commandWiring
}

func NewSendCommand(wiring commandWiring) *SendCommand {
	return &SendCommand{wiring: wiring}
}

// Run sends one message and streams the reply to stdout. Tool requests
// are confirmed automatically with --yes and skipped otherwise; a
// one-shot command has nobody to ask.
func (c *SendCommand) Run(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	model := fs.String("model", "", "model override for this turn")
	branch := fs.String("branch", "", "branch to append to")
	yes := fs.Bool("yes", false, "confirm tool requests without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("send requires a conversation name and a message")
	}
	id := fs.Arg(0)
	text := strings.Join(fs.Args()[1:], " ")

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	log := newCommandLogger(c.wiring.stderr, cfg)
	client, err := c.wiring.newClient(cfg, log)
	if err != nil {
		return err
	}

	store := chat.NewStore(chat.WithDedupWindow(cfg.DedupWindow()), chat.WithStoreLogger(log))
	subs := chat.NewSubscriptions(store, log)
	orch := chat.NewOrchestrator(store, subs, client, log)
	confirm := chat.NewConfirmations(store, client, orch, log)

	ctx := context.Background()
	if err := orch.Load(ctx, id); err != nil {
		return err
	}

	unsubscribe := subs.Subscribe(id, chat.Callbacks{
		Token: func(content string) {
			fmt.Fprint(c.wiring.stdout, content)
		},
		ToolOutput: func(msg types.Message) {
			fmt.Fprintf(c.wiring.stderr, "tool: %s\n", msg.Content)
		},
		ToolPending: func(tool types.PendingTool) {
			// Resolved off the dispatch loop; callbacks must not block.
			go func() {
				if *yes {
					if err := confirm.Confirm(ctx, id); err != nil {
						log.Warn("auto-confirm failed", logging.F("error", err))
					}
					return
				}
				fmt.Fprintf(c.wiring.stderr, "skipping tool request %q (use --yes to run tools)\n", tool.Tool)
				if err := confirm.Skip(ctx, id); err != nil {
					log.Warn("tool skip failed", logging.F("error", err))
				}
			}()
		},
		Error: func(msg string) {
			fmt.Fprintf(c.wiring.stderr, "stream error: %s\n", msg)
		},
	})
	defer unsubscribe()

	opts := chat.SendOptions{Model: *model, Branch: *branch}
	if opts.Model == "" {
		opts.Model = cfg.Model()
	}
	if err := orch.Send(ctx, id, text, opts); err != nil {
		return err
	}
	fmt.Fprintln(c.wiring.stdout)

	if state := store.State(id); state.LastError != "" {
		return errors.New(state.LastError)
	}
	return nil
}
