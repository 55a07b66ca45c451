package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketRecents = []byte("recents")
	bucketDrafts  = []byte("drafts")
)

const maxRecents = 50

type bboltRepository struct {
	db      *bolt.DB
	recents RecentsStore
	drafts  DraftStore
}

// Open opens (creating if needed) the local database at path.
func Open(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:      db,
		recents: &bboltRecentsStore{db: db},
		drafts:  &bboltDraftStore{db: db},
	}, nil
}

func (r *bboltRepository) Recents() RecentsStore {
	return r.recents
}

func (r *bboltRepository) Drafts() DraftStore {
	return r.drafts
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecents); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketDrafts); err != nil {
			return err
		}
		return nil
	})
}

type bboltRecentsStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func (s *bboltRecentsStore) List(ctx context.Context) ([]Recent, error) {
	out := make([]Recent, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecents)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var rec Recent
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastOpened.After(out[j].LastOpened)
	})
	return out, nil
}

func (s *bboltRecentsStore) Touch(ctx context.Context, recent Recent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent.ID = strings.TrimSpace(recent.ID)
	if recent.ID == "" {
		return errors.New("recent id is required")
	}
	if recent.LastOpened.IsZero() {
		recent.LastOpened = time.Now().UTC()
	}
	raw, err := json.Marshal(recent)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecents)
		if b == nil {
			return errors.New("recents bucket missing")
		}
		if err := b.Put([]byte(recent.ID), raw); err != nil {
			return err
		}
		return pruneRecents(b)
	})
}

// pruneRecents keeps the bucket bounded by dropping the oldest entries.
func pruneRecents(b *bolt.Bucket) error {
	type aged struct {
		key    []byte
		opened time.Time
	}
	var all []aged
	err := b.ForEach(func(k, v []byte) error {
		var rec Recent
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		all = append(all, aged{key: append([]byte{}, k...), opened: rec.LastOpened})
		return nil
	})
	if err != nil {
		return err
	}
	if len(all) <= maxRecents {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].opened.Before(all[j].opened)
	})
	for _, entry := range all[:len(all)-maxRecents] {
		if err := b.Delete(entry.key); err != nil {
			return err
		}
	}
	return nil
}

func (s *bboltRecentsStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecents)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

type bboltDraftStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func (s *bboltDraftStore) Get(ctx context.Context, id string) (string, error) {
	var out string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDrafts)
		if b == nil {
			return nil
		}
		out = string(b.Get([]byte(id)))
		return nil
	})
	return out, err
}

func (s *bboltDraftStore) Put(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		return s.deleteLocked(id)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDrafts)
		if b == nil {
			return errors.New("drafts bucket missing")
		}
		return b.Put([]byte(id), []byte(text))
	})
}

func (s *bboltDraftStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *bboltDraftStore) deleteLocked(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDrafts)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}
