package main

import (
	"context"
	"encoding/json"
	"flag"
)

type LSCommand struct {
	wiring commandWiring
}

func NewLSCommand(wiring commandWiring) *LSCommand {
	return &LSCommand{wiring: wiring}
}

func (c *LSCommand) Run(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	limit := fs.Int("limit", 0, "maximum number of conversations (0 uses the configured default)")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	if *limit <= 0 {
		*limit = cfg.ListLimit()
	}

	client, err := c.wiring.newClient(cfg, newCommandLogger(c.wiring.stderr, cfg))
	if err != nil {
		return err
	}
	conversations, err := client.GetConversations(context.Background(), *limit)
	if err != nil {
		return err
	}

	if *asJSON {
		return json.NewEncoder(c.wiring.stdout).Encode(conversations)
	}
	printConversations(c.wiring.stdout, conversations)
	return nil
}
