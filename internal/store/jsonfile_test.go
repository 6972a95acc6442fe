package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

func TestJSONFileHandlesShareOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	api, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	worker, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}

	const perHandle = 100
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 2*perHandle)
	for h, s := range []*JSONFile{api, worker} {
		for i := 0; i < perHandle; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c := domain.NewConversation(domain.KindText, fmt.Sprintf("q-%d-%d", h, i))
				if _, err := s.Save(ctx, c); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Save: %v", err)
	}

	list, err := api.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2*perHandle {
		t.Fatalf("records = %d, want %d", len(list), 2*perHandle)
	}
}

func TestJSONFileWaitsForForeignLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	s, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	other := flock.New(path + ".lock")
	if err := other.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Save(ctx, domain.NewConversation(domain.KindText, "blocked"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Save while locked = %v, want deadline exceeded", err)
	}

	if err := other.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := s.Save(context.Background(), domain.NewConversation(domain.KindText, "free")); err != nil {
		t.Fatalf("Save after unlock: %v", err)
	}
}
