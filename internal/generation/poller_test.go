package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/providers/video"
)

func inProgressVideo(jobID string) *domain.Conversation {
	c := domain.NewConversation(domain.KindVideo, "a cat surfing")
	c.ProviderState = &domain.ProviderState{Provider: "fake-video", JobID: jobID}
	return c
}

func TestPollerTimesOutAfterExactAttempts(t *testing.T) {
	for _, attempts := range []int{1, 3, 10} {
		st := newRecordingStore(t)
		sleeper := &fakeSleeper{}
		gen := &fakeVideo{}
		p := &Poller{Attempts: attempts, Delay: time.Minute, Sleeper: sleeper, Store: st}

		state, err := p.Run(context.Background(), gen, inProgressVideo("abc"))
		if state != domain.JobStateTimedOut {
			t.Fatalf("attempts=%d: state = %s, want timed_out", attempts, state)
		}
		if !errors.Is(err, domain.ErrTimeout) {
			t.Fatalf("attempts=%d: err = %v, want ErrTimeout", attempts, err)
		}
		if errors.Is(err, domain.ErrProvider) {
			t.Fatalf("timeout must be distinct from provider failure")
		}
		if _, polls := gen.counts(); polls != attempts {
			t.Fatalf("polls = %d, want %d", polls, attempts)
		}
		if sleeper.count() != attempts-1 {
			t.Fatalf("sleeps = %d, want %d", sleeper.count(), attempts-1)
		}
		if len(st.Writes()) != 0 {
			t.Fatalf("timed out run must not write a final record")
		}
	}
}

func TestPollerSucceedsOnThirdPoll(t *testing.T) {
	st := newRecordingStore(t)
	sleeper := &fakeSleeper{}
	gen := &fakeVideo{replies: []pollReply{
		{res: video.PollResult{}},
		{res: video.PollResult{Message: "processing"}},
		{res: video.PollResult{Done: true, ResultURL: "X", Message: "Success"}},
	}}
	var transitions []domain.JobState
	p := &Poller{
		Attempts:     10,
		Delay:        60 * time.Second,
		Sleeper:      sleeper,
		Store:        st,
		OnTransition: func(tr Transition) { transitions = append(transitions, tr.To) },
	}
	c := inProgressVideo("abc")

	state, err := p.Run(context.Background(), gen, c)
	if err != nil || state != domain.JobStateSucceeded {
		t.Fatalf("Run = %s, %v", state, err)
	}
	if _, polls := gen.counts(); polls != 3 {
		t.Fatalf("polls = %d, want 3", polls)
	}
	if c.Answer == nil || *c.Answer != "X" {
		t.Fatalf("answer = %v, want X", c.Answer)
	}
	writes := st.Writes()
	if len(writes) != 1 || *writes[0].Answer != "X" {
		t.Fatalf("writes = %+v", writes)
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != 60*time.Second {
		t.Fatalf("delays = %v", sleeper.delays)
	}
	if len(transitions) != 2 || transitions[0] != domain.JobStatePolling || transitions[1] != domain.JobStateSucceeded {
		t.Fatalf("transitions = %v", transitions)
	}
}

func TestPollerDoneWithoutURLKeepsPolling(t *testing.T) {
	gen := &fakeVideo{replies: []pollReply{
		{res: video.PollResult{Done: true}},
		{res: video.PollResult{Done: true, ResultURL: "http://v/9"}},
	}}
	p := &Poller{Attempts: 5, Sleeper: &fakeSleeper{}, Store: newRecordingStore(t)}
	state, err := p.Run(context.Background(), gen, inProgressVideo("abc"))
	if err != nil || state != domain.JobStateSucceeded {
		t.Fatalf("Run = %s, %v", state, err)
	}
	if _, polls := gen.counts(); polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
}

func TestPollerFailsImmediatelyOnProviderError(t *testing.T) {
	providerErr := &domain.ProviderError{Provider: "rhymes", Status: 500, Body: "boom"}
	gen := &fakeVideo{replies: []pollReply{
		{res: video.PollResult{}},
		{err: providerErr},
	}}
	st := newRecordingStore(t)
	p := &Poller{Attempts: 10, Sleeper: &fakeSleeper{}, Store: st}
	c := inProgressVideo("abc")

	state, err := p.Run(context.Background(), gen, c)
	if state != domain.JobStateFailed {
		t.Fatalf("state = %s, want failed", state)
	}
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Status != 500 {
		t.Fatalf("err = %v, want wrapped ProviderError", err)
	}
	if _, polls := gen.counts(); polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
	if c.Answer != nil || len(st.Writes()) != 0 {
		t.Fatalf("failed run must leave the record unanswered")
	}
}

func TestPollerStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeVideo{}
	p := &Poller{Attempts: 10, Delay: time.Hour, Store: newRecordingStore(t)}

	start := time.Now()
	state, err := p.Run(ctx, gen, inProgressVideo("abc"))
	if state != domain.JobStateFailed || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %s, %v", state, err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancelled run waited %s", time.Since(start))
	}
	if _, polls := gen.counts(); polls != 1 {
		t.Fatalf("polls = %d, want 1", polls)
	}
}

func TestPollerStartPersistsBeforePolling(t *testing.T) {
	st := newRecordingStore(t)
	p := &Poller{Attempts: 1, Sleeper: &fakeSleeper{}, Store: st}
	c := inProgressVideo("abc")
	if err := p.Start(context.Background(), c); err != nil {
		t.Fatalf("Start: %v", err)
	}
	writes := st.Writes()
	if len(writes) != 1 || writes[0].Answer != nil || writes[0].ProviderState.JobID != "abc" {
		t.Fatalf("writes = %+v", writes)
	}

	noJob := domain.NewConversation(domain.KindVideo, "q")
	if err := p.Start(context.Background(), noJob); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestTimerSleeper(t *testing.T) {
	if err := (timerSleeper{}).Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (timerSleeper{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
