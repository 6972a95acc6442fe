package generation

import (
	"context"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/providers/prompt"
	"github.com/tomkat-cr/vitexbrain/internal/providers/text"
	"github.com/tomkat-cr/vitexbrain/internal/providers/video"
)

// TextGenerator answers prompts synchronously.
type TextGenerator interface {
	Name() string
	Query(ctx context.Context, req text.QueryRequest) (text.QueryResult, error)
}

// VideoGenerator starts asynchronous jobs and checks on them. Poll never
// sleeps; pacing belongs to the Poller.
type VideoGenerator interface {
	Name() string
	Request(ctx context.Context, input, enhancementTemplate string) (domain.ProviderState, error)
	Poll(ctx context.Context, state domain.ProviderState) (video.PollResult, error)
}

// queryCompleter lets any TextGenerator back prompt helpers such as the
// suggester. It never asks for enhancement.
type queryCompleter struct {
	gen TextGenerator
}

func (q queryCompleter) Complete(ctx context.Context, template, question string) (string, error) {
	res, err := q.gen.Query(ctx, text.QueryRequest{Template: template, Input: question})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

var (
	_ TextGenerator    = (*text.Provider)(nil)
	_ TextGenerator    = (*video.Allegro)(nil)
	_ VideoGenerator   = (*video.Allegro)(nil)
	_ prompt.Completer = queryCompleter{}
)
