package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

const jsonLockRetry = 10 * time.Millisecond

// JSONFile keeps the whole collection in one JSON object keyed by id. Every
// mutation rewrites the file. Read-modify-write cycles hold the mutex within
// the process and an flock on "<path>.lock" across processes, so the API and
// the worker can share one file.
type JSONFile struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewJSONFile creates the parent directory of path. The file itself is
// created on the first write.
func NewJSONFile(path string) (*JSONFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: %w: json db path is required", domain.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure json db directory: %w", err)
	}
	return &JSONFile{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the backing file.
func (s *JSONFile) Path() string {
	return s.path
}

func (s *JSONFile) Save(ctx context.Context, c *domain.Conversation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := prepare(c); err != nil {
		return "", err
	}

	err := s.locked(ctx, true, func() error {
		snap, err := s.read()
		if err != nil {
			return err
		}
		snap[c.ID] = c.ToDocument()
		return s.write(snap)
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *JSONFile) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	doc, ok := snap[id]
	if !ok {
		return nil, fmt.Errorf("conversation %q: %w", id, domain.ErrNotFound)
	}
	return doc.Conversation(id), nil
}

func (s *JSONFile) List(ctx context.Context, opts ListOptions) ([]*domain.Conversation, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	list := documentsToList(snap)
	sortConversations(list, opts)
	return list, nil
}

func (s *JSONFile) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.locked(ctx, true, func() error {
		snap, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := snap[id]; !ok {
			return nil
		}
		delete(snap, id)
		return s.write(snap)
	})
}

// Import merges all snapshots and rewrites the file once.
func (s *JSONFile) Import(ctx context.Context, snapshots ...domain.Snapshot) (ImportSummary, error) {
	var summary ImportSummary
	err := s.locked(ctx, true, func() error {
		snap, err := s.read()
		if err != nil {
			return err
		}
		summary, err = importDocuments(ctx, snapshots, func(id string, doc domain.Document) error {
			snap[id] = doc
			return nil
		})
		if err != nil || summary.Imported == 0 {
			return err
		}
		return s.write(snap)
	})
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *JSONFile) Export(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.snapshot(ctx)
}

func (s *JSONFile) Close() error {
	return nil
}

func (s *JSONFile) snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.locked(ctx, false, func() error {
		var err error
		snap, err = s.read()
		return err
	})
	return snap, err
}

// locked runs fn holding the in-process mutex and the file lock, shared for
// reads and exclusive for writes.
func (s *JSONFile) locked(ctx context.Context, exclusive bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = s.lock.TryLockContext(ctx, jsonLockRetry)
	} else {
		ok, err = s.lock.TryRLockContext(ctx, jsonLockRetry)
	}
	if err != nil {
		return fmt.Errorf("lock json db: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock json db: %s is held by another process", s.lock.Path())
	}
	defer s.lock.Unlock()
	return fn()
}

func (s *JSONFile) read() (domain.Snapshot, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Snapshot{}, nil
		}
		return nil, fmt.Errorf("open json db: %w", err)
	}
	defer file.Close()

	snap := domain.Snapshot{}
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Snapshot{}, nil
		}
		return nil, fmt.Errorf("%w: decode json db: %v", domain.ErrSerialization, err)
	}
	if snap == nil {
		snap = domain.Snapshot{}
	}
	return snap, nil
}

func (s *JSONFile) write(snap domain.Snapshot) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "conversations-*.json")
	if err != nil {
		return fmt.Errorf("create temp json db: %w", err)
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode json db: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp json db: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist json db: %w", err)
	}
	return nil
}

var _ Store = (*JSONFile)(nil)
