package main

import (
	"fmt"
	"os"
)

const usageText = `parley is a terminal client for conversational agent servers.

Usage:
  parley <command> [flags]

Commands:
  chat     open a conversation in the terminal UI
  ls       list conversations on the server
  show     print a conversation log
  send     send a message and stream the reply to stdout
  config   print configuration (effective or defaults)
  version  print the build version
  help     show help

Flags:
  -h, --help   show help

Chat flags:
  --new        create the conversation before opening it
  --demo       open a built-in read-only sample conversation

With no conversation name, chat resumes the most recently opened
conversation, or starts a fresh one when there is nothing to resume.

Examples:
  parley ls
  parley chat notes
  parley chat --new scratch
  parley chat --demo
  parley send notes "summarize the last reply"
  parley show --json notes
  parley config --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
