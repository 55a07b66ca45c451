package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"text/tabwriter"
	"time"

	parleyclient "parley/internal/client"
	"parley/internal/config"
	"parley/internal/logging"
)

const version = "dev"

func printConversations(output io.Writer, conversations []parleyclient.ConversationSummary) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tMESSAGES\tMODIFIED")
	for _, conv := range conversations {
		fmt.Fprintf(writer, "%s\t%d\t%s\n", conv.Name, conv.Messages, formatModified(conv.Modified))
	}
	_ = writer.Flush()
}

func formatModified(unixSeconds float64) string {
	if unixSeconds <= 0 {
		return "-"
	}
	sec := int64(unixSeconds)
	nsec := int64((unixSeconds - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).Local().Format("2006-01-02 15:04")
}

// newCommandLogger logs to stderr for one-shot commands. The chat UI
// owns the terminal, so it logs to a file instead.
func newCommandLogger(stderr io.Writer, cfg config.Config) logging.Logger {
	return logging.New(stderr, logging.ParseLevel(cfg.LogLevel()))
}

func newFileLogger(cfg config.Config) (logging.Logger, func(), error) {
	path, err := config.LogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(file, logging.ParseLevel(cfg.LogLevel())), func() { _ = file.Close() }, nil
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
