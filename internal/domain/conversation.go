package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind enumerates supported conversation categories.
type Kind string

const (
	KindText  Kind = "text"
	KindVideo Kind = "video"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindText || k == KindVideo
}

// JobState enumerates the polling lifecycle of an asynchronous job.
type JobState string

const (
	JobStateStarted   JobState = "started"
	JobStatePolling   JobState = "polling"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed_out"
)

// Terminal reports whether no further transition is allowed.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateTimedOut:
		return true
	default:
		return false
	}
}

// ProviderState is the in-flight snapshot a video provider needs to resume
// polling. It is persisted verbatim as the record's ttv_response.
type ProviderState struct {
	Provider      string `json:"provider,omitempty"`
	JobID         string `json:"job_id"`
	RefinedPrompt string `json:"refined_prompt,omitempty"`
	UserPrompt    string `json:"user_prompt,omitempty"`
	RandSeed      int64  `json:"rand_seed,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Conversation is one user interaction: a question and its (possibly pending) answer.
type Conversation struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"type"`
	Question      string         `json:"question"`
	RefinedPrompt *string        `json:"refined_prompt"`
	Answer        *string        `json:"answer"`
	ProviderState *ProviderState `json:"ttv_response,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ErrAlreadyAnswered is returned when completing a conversation twice.
var ErrAlreadyAnswered = errors.New("conversation already answered")

// NewConversation creates a record with a fresh id and creation time.
func NewConversation(kind Kind, question string) *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Question:  question,
		CreatedAt: Now(),
	}
}

// Now returns the current UTC time at the precision persisted documents keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Complete sets the answer. The transition from nil to non-nil happens once.
func (c *Conversation) Complete(answer string) error {
	if c.Answer != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyAnswered, c.ID)
	}
	c.Answer = &answer
	return nil
}

// SetRefinedPrompt records the enhancer output; later calls are ignored.
func (c *Conversation) SetRefinedPrompt(refined string) {
	if c.RefinedPrompt != nil || refined == "" {
		return
	}
	c.RefinedPrompt = &refined
}

// InProgress reports a video job still waiting for its result.
func (c *Conversation) InProgress() bool {
	return c.Kind == KindVideo && c.Answer == nil
}

// Resumable reports whether polling can be re-entered from the persisted state.
func (c *Conversation) Resumable() bool {
	return c.InProgress() && c.ProviderState != nil && strings.TrimSpace(c.ProviderState.JobID) != ""
}

// Validate checks the record invariants that any store must uphold.
func (c *Conversation) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown conversation type %q", ErrValidation, c.Kind)
	}
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrValidation)
	}
	if c.InProgress() && !c.Resumable() {
		return fmt.Errorf("%w: video conversation without answer needs provider state", ErrValidation)
	}
	return nil
}

// DateTime renders CreatedAt the way listings show it.
func (c *Conversation) DateTime() string {
	return c.CreatedAt.Local().Format("2006-01-02 15:04:05")
}

// Label is the short description shown next to a conversation title.
func (c *Conversation) Label() string {
	return fmt.Sprintf("%s generated on %s", cases.Title(language.Und).String(string(c.Kind)), c.DateTime())
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	out := *c
	if c.RefinedPrompt != nil {
		v := *c.RefinedPrompt
		out.RefinedPrompt = &v
	}
	if c.Answer != nil {
		v := *c.Answer
		out.Answer = &v
	}
	if c.ProviderState != nil {
		v := *c.ProviderState
		out.ProviderState = &v
	}
	return &out
}

// Document is the persisted form of a conversation.
type Document struct {
	Type          Kind           `json:"type"`
	Question      string         `json:"question"`
	Answer        *string        `json:"answer"`
	RefinedPrompt *string        `json:"refined_prompt"`
	TTVResponse   *ProviderState `json:"ttv_response"`
	Timestamp     float64        `json:"timestamp"`
}

// Snapshot is a collection of documents keyed by conversation id. It is both
// the single-file store layout and the import/export format.
type Snapshot map[string]Document

// ToDocument converts a conversation to its persisted form.
func (c *Conversation) ToDocument() Document {
	clone := c.Clone()
	return Document{
		Type:          clone.Kind,
		Question:      clone.Question,
		Answer:        clone.Answer,
		RefinedPrompt: clone.RefinedPrompt,
		TTVResponse:   clone.ProviderState,
		Timestamp:     TimeToTimestamp(clone.CreatedAt),
	}
}

// Conversation rebuilds the record stored under id.
func (d Document) Conversation(id string) *Conversation {
	c := &Conversation{
		ID:            id,
		Kind:          d.Type,
		Question:      d.Question,
		Answer:        d.Answer,
		RefinedPrompt: d.RefinedPrompt,
		ProviderState: d.TTVResponse,
		CreatedAt:     TimestampToTime(d.Timestamp),
	}
	return c.Clone()
}

// TimeToTimestamp converts t to fractional unix seconds.
func TimeToTimestamp(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix()) + float64(t.Nanosecond()/1e3)/1e6
}

// TimestampToTime converts fractional unix seconds back to a UTC time with
// microsecond precision.
func TimestampToTime(ts float64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	sec := math.Floor(ts)
	usec := math.Round((ts - sec) * 1e6)
	if usec >= 1e6 {
		sec++
		usec -= 1e6
	}
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)).UTC()
}
