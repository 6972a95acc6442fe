package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/providers/prompt"
	"github.com/tomkat-cr/vitexbrain/internal/providers/text"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

// Request carries everything one generation call needs. It replaces any
// session-wide state: callers build one per call.
type Request struct {
	Question string `json:"question"`
	Enhance  bool   `json:"enhance"`
}

// Outcome is the envelope plus the id of the conversation it concerns. ID is
// set whenever a record was written, even if the job later failed.
type Outcome struct {
	ID     string                              `json:"id,omitempty"`
	Result domain.Result[*domain.Conversation] `json:"result"`
}

// Options selects providers and prompt defaults for a Service.
type Options struct {
	TextProvider   string
	VideoProvider  string
	SuggestionsQty int
}

// Service runs conversations end to end: resolve the provider, enhance the
// prompt when asked, generate, persist and, for video, poll to completion.
type Service struct {
	registry *Registry
	store    store.Store
	poller   *Poller
	opts     Options
	logger   *infra.Logger
}

func NewService(registry *Registry, st store.Store, poller *Poller, opts Options, logger *infra.Logger) *Service {
	if opts.SuggestionsQty <= 0 {
		opts.SuggestionsQty = len(prompt.DefaultSuggestions())
	}
	return &Service{
		registry: registry,
		store:    st,
		poller:   poller,
		opts:     opts,
		logger:   infra.OrDiscard(logger),
	}
}

// GenerateText answers the question synchronously and stores the finished
// record with a single write.
func (s *Service) GenerateText(ctx context.Context, req Request) Outcome {
	question, err := validateQuestion(req.Question)
	if err != nil {
		return failed("", err)
	}
	gen, err := s.registry.ResolveText(s.opts.TextProvider)
	if err != nil {
		return failed("", err)
	}

	q := text.QueryRequest{Template: prompt.QuestionPlaceholder, Input: question}
	if req.Enhance {
		q.EnhancementTemplate = prompt.RefineTextTemplate
	}
	res, err := gen.Query(ctx, q)
	if err != nil {
		return failed("", fmt.Errorf("text generation: %w", err))
	}

	c := domain.NewConversation(domain.KindText, question)
	c.SetRefinedPrompt(res.RefinedPrompt)
	if err := c.Complete(res.Text); err != nil {
		return failed(c.ID, err)
	}
	if _, err := s.store.Save(ctx, c); err != nil {
		return failed(c.ID, fmt.Errorf("save conversation: %w", err))
	}
	s.logger.Info().Str("conversation_id", c.ID).Str("provider", gen.Name()).Msg("text generated")
	return Outcome{ID: c.ID, Result: domain.OK(c)}
}

// StartVideo starts the vendor job and persists the in-progress record. The
// returned conversation can be driven to completion with Resume.
func (s *Service) StartVideo(ctx context.Context, req Request) Outcome {
	c, _, err := s.startVideo(ctx, req)
	if err != nil {
		id := ""
		if c != nil {
			id = c.ID
		}
		return failed(id, err)
	}
	return Outcome{ID: c.ID, Result: domain.OK(c)}
}

// GenerateVideo starts a job and blocks until polling ends. A failed or
// timed-out job leaves its record in progress so it can be resumed.
func (s *Service) GenerateVideo(ctx context.Context, req Request) Outcome {
	c, gen, err := s.startVideo(ctx, req)
	if err != nil {
		id := ""
		if c != nil {
			id = c.ID
		}
		return failed(id, err)
	}
	return s.poll(ctx, gen, c)
}

func (s *Service) startVideo(ctx context.Context, req Request) (*domain.Conversation, VideoGenerator, error) {
	question, err := validateQuestion(req.Question)
	if err != nil {
		return nil, nil, err
	}
	gen, err := s.registry.ResolveVideo(s.opts.VideoProvider)
	if err != nil {
		return nil, nil, err
	}

	enhancement := ""
	if req.Enhance {
		enhancement = prompt.RefineVideoTemplate
	}
	state, err := gen.Request(ctx, question, enhancement)
	if err != nil {
		return nil, nil, fmt.Errorf("video request: %w", err)
	}
	if state.Provider == "" {
		state.Provider = normalizeName(s.opts.VideoProvider)
	}

	c := domain.NewConversation(domain.KindVideo, question)
	if req.Enhance {
		c.SetRefinedPrompt(state.RefinedPrompt)
	}
	c.ProviderState = &state
	if err := s.poller.Start(ctx, c); err != nil {
		return c, nil, err
	}
	return c, gen, nil
}

// Resume continues polling an in-progress video record from its persisted
// provider state without starting a new vendor job. Finished records are
// returned unchanged.
func (s *Service) Resume(ctx context.Context, id string) Outcome {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return failed(id, err)
	}
	if c.Answer != nil {
		return Outcome{ID: c.ID, Result: domain.OK(c)}
	}
	if !c.Resumable() {
		return failed(c.ID, fmt.Errorf("%w: conversation %s cannot be resumed", domain.ErrValidation, c.ID))
	}
	name := c.ProviderState.Provider
	if strings.TrimSpace(name) == "" {
		name = s.opts.VideoProvider
	}
	gen, err := s.registry.ResolveVideo(name)
	if err != nil {
		return failed(c.ID, err)
	}
	return s.poll(ctx, gen, c)
}

func (s *Service) poll(ctx context.Context, gen VideoGenerator, c *domain.Conversation) Outcome {
	if _, err := s.poller.Run(ctx, gen, c); err != nil {
		return failed(c.ID, err)
	}
	return Outcome{ID: c.ID, Result: domain.OK(c)}
}

// InProgress lists video records still waiting for their result, oldest first.
func (s *Service) InProgress(ctx context.Context) ([]*domain.Conversation, error) {
	list, err := s.store.List(ctx, store.ListOptions{SortField: store.SortByTimestamp, Order: store.OrderAsc})
	if err != nil {
		return nil, err
	}
	var out []*domain.Conversation
	for _, c := range list {
		if c.Resumable() {
			out = append(out, c)
		}
	}
	return out, nil
}

// Suggestions returns qty prompt ideas from the text provider. Unusable
// model output falls back to the default set.
func (s *Service) Suggestions(ctx context.Context, qty int) domain.Result[[]string] {
	if qty <= 0 {
		qty = s.opts.SuggestionsQty
	}
	gen, err := s.registry.ResolveText(s.opts.TextProvider)
	if err != nil {
		return domain.Fail[[]string](err)
	}
	suggestions, err := prompt.NewSuggester(queryCompleter{gen: gen}, s.logger).Suggest(ctx, qty)
	if err != nil {
		return domain.Fail[[]string](fmt.Errorf("suggestions: %w", err))
	}
	return domain.OK(suggestions.Ordered())
}

// Conversations lists stored records in the requested order.
func (s *Service) Conversations(ctx context.Context, opts store.ListOptions) domain.Result[[]*domain.Conversation] {
	list, err := s.store.List(ctx, opts)
	return domain.From(list, err)
}

// Conversation loads one record.
func (s *Service) Conversation(ctx context.Context, id string) domain.Result[*domain.Conversation] {
	c, err := s.store.Get(ctx, id)
	return domain.From(c, err)
}

// Delete removes a record; unknown ids are not an error.
func (s *Service) Delete(ctx context.Context, id string) domain.Result[string] {
	if err := s.store.Delete(ctx, id); err != nil {
		return domain.Fail[string](err)
	}
	return domain.OK(id)
}

// Import merges snapshots into the store.
func (s *Service) Import(ctx context.Context, snapshots ...domain.Snapshot) domain.Result[store.ImportSummary] {
	summary, err := s.store.Import(ctx, snapshots...)
	return domain.From(summary, err)
}

// Export dumps the whole store in import format.
func (s *Service) Export(ctx context.Context) domain.Result[domain.Snapshot] {
	snap, err := s.store.Export(ctx)
	return domain.From(snap, err)
}

// Gallery lists the URLs of finished videos, newest first.
func (s *Service) Gallery(ctx context.Context) domain.Result[[]string] {
	urls, err := store.VideoURLs(ctx, s.store)
	return domain.From(urls, err)
}

func validateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("%w: question is required", domain.ErrValidation)
	}
	return q, nil
}

func failed(id string, err error) Outcome {
	return Outcome{ID: id, Result: domain.Fail[*domain.Conversation](err)}
}
