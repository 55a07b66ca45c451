package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

type clipboardMethod uint8

const (
	clipboardMethodSystem clipboardMethod = iota
	clipboardMethodOSC52
)

// Swappable in tests.
var clipboardWriteAll = clipboard.WriteAll
var clipboardWriteOSC52 = writeOSC52Clipboard

// copyTextToClipboard tries the system clipboard first and falls back to
// an OSC52 escape sequence, which reaches the local clipboard even over
// SSH where no display is available.
func copyTextToClipboard(text string) (clipboardMethod, error) {
	sysErr := clipboardWriteAll(text)
	if sysErr == nil {
		return clipboardMethodSystem, nil
	}
	oscErr := clipboardWriteOSC52(text)
	if oscErr == nil {
		return clipboardMethodOSC52, nil
	}
	if missingDisplay() {
		return clipboardMethodSystem, fmt.Errorf("no GUI clipboard available (DISPLAY/WAYLAND_DISPLAY unset); OSC52 fallback failed: %s", describeClipboardError(oscErr))
	}
	return clipboardMethodSystem, fmt.Errorf("system clipboard failed: %s; OSC52 fallback failed: %s",
		describeClipboardError(sysErr), describeClipboardError(oscErr))
}

func writeOSC52Clipboard(text string) error {
	if !shouldAttemptOSC52() {
		return errors.New("OSC52 unavailable for this terminal")
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open /dev/tty: %w", err)
	}
	defer tty.Close()
	for _, seq := range osc52Sequences(text) {
		if _, err := seq.WriteTo(tty); err != nil {
			return err
		}
	}
	return nil
}

// osc52Sequences picks the escape framing for the current multiplexer.
// Under tmux both the plain and tmux-wrapped forms are emitted; which one
// lands depends on the user's set-clipboard setting.
func osc52Sequences(text string) []io.WriterTo {
	if os.Getenv("TMUX") != "" {
		return []io.WriterTo{osc52.New(text), osc52.New(text).Tmux()}
	}
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	if strings.HasPrefix(term, "screen") {
		return []io.WriterTo{osc52.New(text).Screen()}
	}
	return []io.WriterTo{osc52.New(text)}
}

func shouldAttemptOSC52() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PARLEY_DISABLE_OSC52"))) {
	case "1", "true", "yes", "on":
		return false
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	return term != "" && !strings.EqualFold(term, "dumb")
}

// describeClipboardError turns the helper binaries' opaque "exit status 1"
// into something actionable.
func describeClipboardError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg != "exit status 1" {
		return msg
	}
	if missingDisplay() {
		return "no GUI clipboard available (DISPLAY/WAYLAND_DISPLAY unset)"
	}
	return "clipboard helper exited with status 1"
}

func missingDisplay() bool {
	return strings.TrimSpace(os.Getenv("DISPLAY")) == "" && strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) == ""
}
