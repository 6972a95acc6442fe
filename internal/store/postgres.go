package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/sqlinline"
)

// Postgres stores one JSONB document per conversation. Writes are per-row
// upserts; there is no transaction across documents.
type Postgres struct {
	db    infra.SQLExecutor
	close func()
}

// NewPostgres ensures the schema exists. db is normally an *infra.SQLRunner
// since every query carries a marker line. closeFn releases the pool and may
// be nil.
func NewPostgres(ctx context.Context, db infra.SQLExecutor, closeFn func()) (*Postgres, error) {
	for _, q := range []string{sqlinline.QEnsureConversations, sqlinline.QEnsureConversationsCreatedIdx} {
		if _, err := db.Exec(ctx, q); err != nil {
			return nil, fmt.Errorf("store: ensure conversations schema: %w", err)
		}
	}
	return &Postgres{db: db, close: closeFn}, nil
}

func (s *Postgres) Save(ctx context.Context, c *domain.Conversation) (string, error) {
	if err := prepare(c); err != nil {
		return "", err
	}
	if err := s.put(ctx, c.ID, c.ToDocument()); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *Postgres) put(ctx context.Context, id string, doc domain.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", domain.ErrSerialization, err)
	}
	_, err = s.db.Exec(ctx, sqlinline.QUpsertConversation, id, string(doc.Type), doc.Question, string(raw), doc.Timestamp)
	if err != nil {
		return fmt.Errorf("upsert conversation %q: %w", id, err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, sqlinline.QGetConversation, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %q: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation %q: %w", id, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return doc.Conversation(id), nil
}

func (s *Postgres) List(ctx context.Context, opts ListOptions) ([]*domain.Conversation, error) {
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

func (s *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, sqlinline.QDeleteConversation, id); err != nil {
		return fmt.Errorf("delete conversation %q: %w", id, err)
	}
	return nil
}

func (s *Postgres) Import(ctx context.Context, snapshots ...domain.Snapshot) (ImportSummary, error) {
	return importDocuments(ctx, snapshots, func(id string, doc domain.Document) error {
		return s.put(ctx, id, doc)
	})
}

func (s *Postgres) Export(ctx context.Context) (domain.Snapshot, error) {
	rows, err := s.db.Query(ctx, sqlinline.QListConversations)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	snap := domain.Snapshot{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		doc, err := decodeDocument(raw)
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

func (s *Postgres) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func decodeDocument(raw []byte) (domain.Document, error) {
	var doc domain.Document
	if len(strings.TrimSpace(string(raw))) == 0 {
		return doc, fmt.Errorf("%w: empty document", domain.ErrSerialization)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("%w: decode document: %v", domain.ErrSerialization, err)
	}
	return doc, nil
}

var _ Store = (*Postgres)(nil)
