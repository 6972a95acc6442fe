package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/generation"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

type stubResumer struct {
	mu      sync.Mutex
	pending []*domain.Conversation
	listErr error
	fail    map[string]error
	resumed []string
}

func (s *stubResumer) InProgress(context.Context) ([]*domain.Conversation, error) {
	return s.pending, s.listErr
}

func (s *stubResumer) Resume(_ context.Context, id string) generation.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumed = append(s.resumed, id)
	if err := s.fail[id]; err != nil {
		return generation.Outcome{ID: id, Result: domain.Fail[*domain.Conversation](err)}
	}
	return generation.Outcome{ID: id, Result: domain.OK(&domain.Conversation{ID: id})}
}

func pendingVideo(id string) *domain.Conversation {
	return &domain.Conversation{
		ID:            id,
		Kind:          domain.KindVideo,
		ProviderState: &domain.ProviderState{Provider: "rhymes", JobID: "job-" + id},
	}
}

func newWorker(ctx context.Context, svc resumer) *resumeWorker {
	return &resumeWorker{
		ctx:        ctx,
		svc:        svc,
		logger:     *infra.DiscardLogger(),
		interval:    time.Millisecond,
		jobTimeout:  time.Second,
		concurrency: 2,
	}
}

func TestScanResumesEveryPendingJob(t *testing.T) {
	svc := &stubResumer{
		pending: []*domain.Conversation{pendingVideo("a"), pendingVideo("b"), pendingVideo("c")},
		fail:    map[string]error{"b": fmt.Errorf("%w: not ready", domain.ErrTimeout)},
	}
	w := newWorker(context.Background(), svc)

	if got := w.scan(); got != 2 {
		t.Fatalf("finished = %d, want 2", got)
	}
	sort.Strings(svc.resumed)
	if len(svc.resumed) != 3 || svc.resumed[0] != "a" || svc.resumed[2] != "c" {
		t.Fatalf("resumed = %v", svc.resumed)
	}
}

func TestScanSurvivesListFailure(t *testing.T) {
	svc := &stubResumer{listErr: errors.New("disk gone")}
	if got := newWorker(context.Background(), svc).scan(); got != 0 {
		t.Fatalf("finished = %d, want 0", got)
	}
}

func TestScanStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := &stubResumer{pending: []*domain.Conversation{pendingVideo("a")}}
	newWorker(ctx, svc).scan()
	if len(svc.resumed) != 0 {
		t.Fatalf("resumed = %v, want none after cancel", svc.resumed)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := newWorker(ctx, &stubResumer{}).Run()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() = %v, want deadline exceeded", err)
	}
}
