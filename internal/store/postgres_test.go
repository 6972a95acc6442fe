package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

// fakePG emulates the conversations table for the queries the store issues.
// It receives query bodies after the runner has stripped their markers.
type fakePG struct {
	mu      sync.Mutex
	docs    map[string]string
	queries []string
	failOn  string
}

func newFakePG() *fakePG {
	return &fakePG{docs: map[string]string{}}
}

func (f *fakePG) record(query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return errors.New("connection reset by peer")
	}
	return nil
}

func (f *fakePG) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if err := f.record(query); err != nil {
		return pgconn.CommandTag{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.Contains(query, "insert into conversations"):
		f.docs[args[0].(string)] = args[3].(string)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(query, "delete from conversations"):
		id := args[0].(string)
		if _, ok := f.docs[id]; !ok {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(f.docs, id)
		return pgconn.NewCommandTag("DELETE 1"), nil
	default:
		return pgconn.CommandTag{}, nil
	}
}

func (f *fakePG) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if err := f.record(query); err != nil {
		return simpleRow{scan: func(...any) error { return err }}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[args[0].(string)]
	if !ok {
		return simpleRow{}
	}
	return simpleRow{scan: func(dest ...any) error {
		*dest[0].(*[]byte) = []byte(doc)
		return nil
	}}
}

func (f *fakePG) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if err := f.record(query); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := &docRows{}
	for _, id := range ids {
		rows.ids = append(rows.ids, id)
		rows.docs = append(rows.docs, f.docs[id])
	}
	return rows, nil
}

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

type docRows struct {
	testRowsBase
	ids  []string
	docs []string
	pos  int
}

func (r *docRows) Close() {}

func (r *docRows) Err() error { return nil }

func (r *docRows) Next() bool {
	if r.pos >= len(r.ids) {
		return false
	}
	r.pos++
	return true
}

func (r *docRows) Scan(dest ...any) error {
	i := r.pos - 1
	*dest[0].(*string) = r.ids[i]
	*dest[1].(*[]byte) = []byte(r.docs[i])
	return nil
}

func TestPostgresEnsuresSchemaThroughRunner(t *testing.T) {
	fake := newFakePG()
	if _, err := NewPostgres(context.Background(), infra.NewSQLRunner(fake, nil), nil); err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	if len(fake.queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(fake.queries))
	}
	for _, q := range fake.queries {
		if strings.HasPrefix(strings.TrimSpace(q), "--sql") {
			t.Fatalf("marker line reached the database: %q", q)
		}
	}
	if !strings.Contains(fake.queries[0], "create table if not exists conversations") {
		t.Fatalf("first query = %q", fake.queries[0])
	}
}

func TestPostgresRejectsUnmarkedQueries(t *testing.T) {
	runner := infra.NewSQLRunner(newFakePG(), nil)
	if _, err := runner.Exec(context.Background(), "select 1"); !errors.Is(err, infra.ErrMissingSQLMarker) {
		t.Fatalf("err = %v, want ErrMissingSQLMarker", err)
	}
}

func TestPostgresPropagatesDriverErrors(t *testing.T) {
	fake := newFakePG()
	s, err := NewPostgres(context.Background(), infra.NewSQLRunner(fake, nil), nil)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	fake.failOn = "select document"
	_, err = s.Get(context.Background(), "id-1")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want driver error", err)
	}
	if !strings.Contains(err.Error(), "connection reset by peer") {
		t.Fatalf("err = %v, want original message", err)
	}
}

func TestPostgresCloseReleasesPool(t *testing.T) {
	closed := false
	s, err := NewPostgres(context.Background(), infra.NewSQLRunner(newFakePG(), nil), func() { closed = true })
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	if err := s.Close(); err != nil || !closed {
		t.Fatalf("Close = %v, closed = %v", err, closed)
	}
}
