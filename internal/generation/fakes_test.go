package generation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/providers/text"
	"github.com/tomkat-cr/vitexbrain/internal/providers/video"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

// recordingStore wraps a real JSON store and keeps a copy of every write.
type recordingStore struct {
	store.Store
	mu     sync.Mutex
	writes []*domain.Conversation
}

func newRecordingStore(t *testing.T) *recordingStore {
	t.Helper()
	s, err := store.NewJSONFile(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	return &recordingStore{Store: s}
}

func (r *recordingStore) Save(ctx context.Context, c *domain.Conversation) (string, error) {
	id, err := r.Store.Save(ctx, c)
	if err == nil {
		r.mu.Lock()
		r.writes = append(r.writes, c.Clone())
		r.mu.Unlock()
	}
	return id, err
}

func (r *recordingStore) Writes() []*domain.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Conversation(nil), r.writes...)
}

type fakeText struct {
	reply    text.QueryResult
	err      error
	mu       sync.Mutex
	requests []text.QueryRequest
}

func (f *fakeText) Name() string { return "fake-text" }

func (f *fakeText) Query(ctx context.Context, req text.QueryRequest) (text.QueryResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply, f.err
}

type pollReply struct {
	res video.PollResult
	err error
}

// fakeVideo replays scripted poll replies; once they run out it keeps
// answering "not done".
type fakeVideo struct {
	state      domain.ProviderState
	requestErr error
	replies    []pollReply

	mu           sync.Mutex
	requests     int
	enhancements []string
	polls        int
}

func (f *fakeVideo) Name() string { return "fake-video" }

func (f *fakeVideo) Request(ctx context.Context, input, enhancementTemplate string) (domain.ProviderState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.enhancements = append(f.enhancements, enhancementTemplate)
	if f.requestErr != nil {
		return domain.ProviderState{}, f.requestErr
	}
	return f.state, nil
}

func (f *fakeVideo) Poll(ctx context.Context, state domain.ProviderState) (video.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.polls
	f.polls++
	if idx < len(f.replies) {
		return f.replies[idx].res, f.replies[idx].err
	}
	return video.PollResult{}, nil
}

func (f *fakeVideo) counts() (requests, polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests, f.polls
}

// fakeSleeper records requested delays without waiting.
type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *fakeSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}
