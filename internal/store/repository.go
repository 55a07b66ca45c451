package store

import (
	"context"
	"time"
)

// Recent records a conversation the user opened, so the chat UI can offer
// it again without asking the server.
type Recent struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Server     string    `json:"server,omitempty"`
	LastOpened time.Time `json:"last_opened"`
}

type RecentsStore interface {
	// List returns recents ordered most recently opened first.
	List(ctx context.Context) ([]Recent, error)
	Touch(ctx context.Context, recent Recent) error
	Remove(ctx context.Context, id string) error
}

// DraftStore persists unsent input per conversation across runs.
type DraftStore interface {
	Get(ctx context.Context, id string) (string, error)
	Put(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Recents() RecentsStore
	Drafts() DraftStore
	Close() error
}
