package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/sqlinline"
)

// SQLite is an embedded single-file document store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: %w: sqlite path is required", domain.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create sqlite directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// One writer avoids SQLITE_BUSY on concurrent upserts.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	for _, ddl := range []string{sqlinline.QLiteEnsureConversations, sqlinline.QLiteEnsureConversationsTimestampIdx} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create sqlite schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, c *domain.Conversation) (string, error) {
	if err := prepare(c); err != nil {
		return "", err
	}
	if err := s.put(ctx, c.ID, c.ToDocument()); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *SQLite) put(ctx context.Context, id string, doc domain.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", domain.ErrSerialization, err)
	}
	if _, err := s.db.ExecContext(ctx, sqlinline.QLiteUpsertConversation, id, string(doc.Type), doc.Question, string(raw), doc.Timestamp); err != nil {
		return fmt.Errorf("upsert conversation %q: %w", id, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, sqlinline.QLiteGetConversation, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %q: %w", id, err)
	}
	doc, err := decodeDocument([]byte(raw))
	if err != nil {
		return nil, err
	}
	return doc.Conversation(id), nil
}

func (s *SQLite) List(ctx context.Context, opts ListOptions) ([]*domain.Conversation, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	snap, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	list := documentsToList(snap)
	sortConversations(list, opts)
	return list, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, sqlinline.QLiteDeleteConversation, id); err != nil {
		return fmt.Errorf("delete conversation %q: %w", id, err)
	}
	return nil
}

func (s *SQLite) Import(ctx context.Context, snapshots ...domain.Snapshot) (ImportSummary, error) {
	return importDocuments(ctx, snapshots, func(id string, doc domain.Document) error {
		return s.put(ctx, id, doc)
	})
}

func (s *SQLite) Export(ctx context.Context) (domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, sqlinline.QLiteListConversations)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	snap := domain.Snapshot{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		doc, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("conversation %q: %w", id, err)
		}
		snap[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return snap, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)
