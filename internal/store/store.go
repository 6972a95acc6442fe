package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

// Store persists conversations. Every backend upserts by id, treats deleting a
// missing id as a no-op and exports the same snapshot format it imports.
type Store interface {
	Save(ctx context.Context, c *domain.Conversation) (string, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	List(ctx context.Context, opts ListOptions) ([]*domain.Conversation, error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, snapshots ...domain.Snapshot) (ImportSummary, error)
	Export(ctx context.Context) (domain.Snapshot, error)
	Close() error
}

// Sortable fields.
const (
	SortByTimestamp = "timestamp"
	SortByQuestion  = "question"
	SortByType      = "type"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListOptions selects the listing order. Zero values mean newest first.
type ListOptions struct {
	SortField string
	Order     string
}

// Normalize fills defaults and rejects unknown fields or orders.
func (o ListOptions) Normalize() (ListOptions, error) {
	out := ListOptions{
		SortField: strings.ToLower(strings.TrimSpace(o.SortField)),
		Order:     strings.ToLower(strings.TrimSpace(o.Order)),
	}
	switch out.SortField {
	case "":
		out.SortField = SortByTimestamp
	case SortByTimestamp, SortByQuestion, SortByType:
	default:
		return ListOptions{}, fmt.Errorf("%w: unknown sort field %q", domain.ErrValidation, o.SortField)
	}
	switch out.Order {
	case "":
		out.Order = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return ListOptions{}, fmt.Errorf("%w: unknown sort order %q", domain.ErrValidation, o.Order)
	}
	return out, nil
}

// ImportError describes one document the import rejected.
type ImportError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ImportSummary reports the outcome of a batch import.
type ImportSummary struct {
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// Open builds the backend selected by cfg.DBType.
func Open(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (Store, error) {
	switch cfg.DBType {
	case infra.DBTypeJSON:
		return NewJSONFile(cfg.JSONDBPath)
	case infra.DBTypeSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case infra.DBTypePostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("store: connect postgres: %w", err)
		}
		s, err := NewPostgres(ctx, infra.NewSQLRunner(pool, logger), pool.Close)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store: %w: unsupported DB_TYPE %q", domain.ErrConfiguration, cfg.DBType)
	}
}

// DecodeSnapshots reads either a single snapshot object or an array of them.
func DecodeSnapshots(r io.Reader) ([]domain.Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", domain.ErrSerialization)
	}
	if raw[0] == '[' {
		var many []domain.Snapshot
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, fmt.Errorf("%w: decode snapshots: %v", domain.ErrSerialization, err)
		}
		return many, nil
	}
	var one domain.Snapshot
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", domain.ErrSerialization, err)
	}
	return []domain.Snapshot{one}, nil
}

// VideoURLs lists the answers of finished video conversations, newest first.
func VideoURLs(ctx context.Context, s Store) ([]string, error) {
	list, err := s.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, c := range list {
		if c.Kind == domain.KindVideo && c.Answer != nil && *c.Answer != "" {
			urls = append(urls, *c.Answer)
		}
	}
	return urls, nil
}

// prepare assigns a missing id, brings CreatedAt to the UTC microsecond
// precision documents keep, and checks the record before it is written.
func prepare(c *domain.Conversation) error {
	if c == nil {
		return fmt.Errorf("%w: conversation is nil", domain.ErrValidation)
	}
	if strings.TrimSpace(c.ID) == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = domain.Now()
	} else {
		c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Microsecond)
	}
	return c.Validate()
}

// importDocuments validates every document and hands the valid ones to put.
// Invalid documents are reported and skipped.
func importDocuments(ctx context.Context, snapshots []domain.Snapshot, put func(id string, doc domain.Document) error) (ImportSummary, error) {
	var summary ImportSummary
	for _, snap := range snapshots {
		for _, id := range sortedIDs(snap) {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			doc := snap[id]
			if strings.TrimSpace(id) == "" {
				summary.Errors = append(summary.Errors, ImportError{ID: id, Error: "empty id"})
				continue
			}
			if err := doc.Conversation(id).Validate(); err != nil {
				summary.Errors = append(summary.Errors, ImportError{ID: id, Error: err.Error()})
				continue
			}
			if err := put(id, doc); err != nil {
				summary.Errors = append(summary.Errors, ImportError{ID: id, Error: err.Error()})
				continue
			}
			summary.Imported++
		}
	}
	return summary, nil
}

func sortedIDs(snap domain.Snapshot) []string {
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sortConversations orders list in place. Equal keys fall back to the id so
// repeated listings are stable across backends.
func sortConversations(list []*domain.Conversation, opts ListOptions) {
	less := func(a, b *domain.Conversation) int {
		switch opts.SortField {
		case SortByQuestion:
			return strings.Compare(a.Question, b.Question)
		case SortByType:
			return strings.Compare(string(a.Kind), string(b.Kind))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		cmp := less(list[i], list[j])
		if cmp == 0 {
			cmp = strings.Compare(list[i].ID, list[j].ID)
		}
		if opts.Order == OrderAsc {
			return cmp < 0
		}
		return cmp > 0
	})
}

func documentsToList(snap domain.Snapshot) []*domain.Conversation {
	list := make([]*domain.Conversation, 0, len(snap))
	for id, doc := range snap {
		list = append(list, doc.Conversation(id))
	}
	return list
}
