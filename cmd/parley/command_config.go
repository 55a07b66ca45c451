package main

import (
	"encoding/json"
	"flag"
	"fmt"

	"parley/internal/config"
)

type ConfigCommand struct {
	wiring commandWiring
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

func NewConfigCommand(wiring commandWiring) *ConfigCommand {
	return &ConfigCommand{wiring: wiring}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	format := fs.String("format", configFormatTOML, "output format: toml or json")
	defaults := fs.Bool("defaults", false, "print the built-in defaults instead of the effective config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if !*defaults {
		loaded, err := c.wiring.loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
	}

	switch *format {
	case configFormatTOML:
		out, err := cfg.Dump()
		if err != nil {
			return err
		}
		fmt.Fprint(c.wiring.stdout, out)
		return nil
	case configFormatJSON:
		encoder := json.NewEncoder(c.wiring.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

type VersionCommand struct {
	wiring commandWiring
}

func NewVersionCommand(wiring commandWiring) *VersionCommand {
	return &VersionCommand{wiring: wiring}
}

func (c *VersionCommand) Run(args []string) error {
	fmt.Fprintln(c.wiring.stdout, c.wiring.version)
	return nil
}
