package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

const (
	DefaultPollAttempts = 10
	DefaultPollDelay    = 60 * time.Second
)

// Sleeper waits between poll attempts. Implementations must return early with
// ctx.Err() when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordSaver is the part of the conversation store the poller writes to.
type RecordSaver interface {
	Save(ctx context.Context, c *domain.Conversation) (string, error)
}

// Transition describes one state change of a polled job.
type Transition struct {
	ConversationID string
	JobID          string
	From           domain.JobState
	To             domain.JobState
	Attempt        int
	Err            error
}

// Poller drives a started video job to a terminal state: it persists the
// in-progress record, polls up to Attempts times with Delay in between and
// writes the final record on success.
type Poller struct {
	Attempts     int
	Delay        time.Duration
	Sleeper      Sleeper
	Store        RecordSaver
	OnTransition func(Transition)
}

// NewPoller returns a poller with the configured budget and a real timer.
func NewPoller(store RecordSaver, attempts int, delay time.Duration, logger *infra.Logger) *Poller {
	log := infra.OrDiscard(logger)
	return &Poller{
		Attempts: attempts,
		Delay:    delay,
		Sleeper:  timerSleeper{},
		Store:    store,
		OnTransition: func(t Transition) {
			ev := log.Info()
			if t.Err != nil {
				ev = log.Warn().Err(t.Err)
			}
			ev.Str("conversation_id", t.ConversationID).
				Str("job_id", t.JobID).
				Str("from", string(t.From)).
				Str("to", string(t.To)).
				Int("attempt", t.Attempt).
				Msg("video job transition")
		},
	}
}

// Start persists the in-progress record before any poll is made. That write
// is what lets an interrupted job be resumed.
func (p *Poller) Start(ctx context.Context, c *domain.Conversation) error {
	if !c.Resumable() {
		return fmt.Errorf("%w: conversation %s has no job to poll", domain.ErrValidation, c.ID)
	}
	if _, err := p.Store.Save(ctx, c); err != nil {
		return fmt.Errorf("save in-progress conversation: %w", err)
	}
	p.transition(c, "", domain.JobStateStarted, 0, nil)
	return nil
}

// Run polls the job recorded in c until it succeeds, fails or the attempt
// budget runs out. It returns the terminal state. Provider errors end the run
// at once; only "not done yet" replies consume further attempts.
func (p *Poller) Run(ctx context.Context, gen VideoGenerator, c *domain.Conversation) (domain.JobState, error) {
	if !c.Resumable() {
		return domain.JobStateFailed, fmt.Errorf("%w: conversation %s has no job to poll", domain.ErrValidation, c.ID)
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = timerSleeper{}
	}

	state := domain.JobStateStarted
	for attempt := 1; attempt <= attempts; attempt++ {
		if state != domain.JobStatePolling {
			p.transition(c, state, domain.JobStatePolling, attempt, nil)
			state = domain.JobStatePolling
		}

		res, err := gen.Poll(ctx, *c.ProviderState)
		if err != nil {
			err = fmt.Errorf("poll video job %s: %w", c.ProviderState.JobID, err)
			p.transition(c, state, domain.JobStateFailed, attempt, err)
			return domain.JobStateFailed, err
		}
		if res.Message != "" {
			c.ProviderState.Message = res.Message
		}
		if res.Done && res.ResultURL != "" {
			if err := c.Complete(res.ResultURL); err != nil {
				p.transition(c, state, domain.JobStateFailed, attempt, err)
				return domain.JobStateFailed, err
			}
			if _, err := p.Store.Save(ctx, c); err != nil {
				err = fmt.Errorf("save finished conversation: %w", err)
				p.transition(c, state, domain.JobStateFailed, attempt, err)
				return domain.JobStateFailed, err
			}
			p.transition(c, state, domain.JobStateSucceeded, attempt, nil)
			return domain.JobStateSucceeded, nil
		}

		if attempt == attempts {
			break
		}
		if err := sleeper.Sleep(ctx, p.delay()); err != nil {
			p.transition(c, state, domain.JobStateFailed, attempt, err)
			return domain.JobStateFailed, err
		}
	}

	err := fmt.Errorf("%w: video job %s not ready after %d attempts", domain.ErrTimeout, c.ProviderState.JobID, attempts)
	p.transition(c, state, domain.JobStateTimedOut, attempts, err)
	return domain.JobStateTimedOut, err
}

func (p *Poller) delay() time.Duration {
	if p.Delay < 0 {
		return 0
	}
	return p.Delay
}

func (p *Poller) transition(c *domain.Conversation, from, to domain.JobState, attempt int, err error) {
	if p.OnTransition == nil {
		return
	}
	t := Transition{ConversationID: c.ID, From: from, To: to, Attempt: attempt, Err: err}
	if c.ProviderState != nil {
		t.JobID = c.ProviderState.JobID
	}
	p.OnTransition(t)
}
