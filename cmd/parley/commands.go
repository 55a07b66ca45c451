package main

import (
	"io"
	"os"

	"parley/internal/app"
	"parley/internal/config"
	"parley/internal/store"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
	openRepo   func() (store.Repository, error)
	runUI      func(id string, deps app.Deps) error
	version    string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		newClient:  newParleyClient,
		openRepo:   openDefaultRepo,
		runUI:      app.Run,
		version:    buildVersion(),
	}
}

func openDefaultRepo() (store.Repository, error) {
	path, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"chat":    NewChatCommand(wiring),
		"ls":      NewLSCommand(wiring),
		"show":    NewShowCommand(wiring),
		"send":    NewSendCommand(wiring),
		"config":  NewConfigCommand(wiring),
		"version": NewVersionCommand(wiring),
	}
}
