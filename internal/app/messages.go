package app

import (
	"time"

	"parley/internal/types"
)

type tickMsg time.Time

type connCheckMsg struct {
	connected bool
}

type draftLoadedMsg struct {
	text string
}

type conversationLoadedMsg struct {
	err error
}

type sendFinishedMsg struct {
	err error
}

type interruptFinishedMsg struct {
	err error
}

type toolResolvedMsg struct {
	action types.ToolAction
	err    error
}
