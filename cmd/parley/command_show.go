package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"parley/internal/types"
)

type ShowCommand struct {
	wiring commandWiring
}

func NewShowCommand(wiring commandWiring) *ShowCommand {
	return &ShowCommand{wiring: wiring}
}

func (c *ShowCommand) Run(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	branch := fs.String("branch", "", "show a specific branch instead of the main log")
	asJSON := fs.Bool("json", false, "print the raw conversation as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("show requires a conversation name")
	}
	id := fs.Arg(0)

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	client, err := c.wiring.newClient(cfg, newCommandLogger(c.wiring.stderr, cfg))
	if err != nil {
		return err
	}
	detail, err := client.GetConversation(context.Background(), id)
	if err != nil {
		return err
	}

	if *asJSON {
		return json.NewEncoder(c.wiring.stdout).Encode(detail)
	}

	log := detail.Log
	if *branch != "" {
		branchLog, ok := detail.Branches[*branch]
		if !ok {
			return fmt.Errorf("conversation %q has no branch %q", id, *branch)
		}
		log = branchLog
	}
	for _, msg := range log {
		printMessage(c.wiring.stdout, msg)
	}
	return nil
}

func printMessage(out io.Writer, msg types.Message) {
	fmt.Fprintf(out, "[%s] %s\n", msg.Role, msg.Content)
}
