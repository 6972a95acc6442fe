package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomkat-cr/vitexbrain/internal/providers/prompt"
)

// QueryRequest is one synchronous completion. Template carries a {question}
// placeholder filled with Input. A non-empty EnhancementTemplate rewrites
// Input first and the rewrite is sent as the literal prompt.
type QueryRequest struct {
	Template            string
	Input               string
	EnhancementTemplate string
}

// QueryResult is the completion text plus the refined prompt, if any.
type QueryResult struct {
	Text          string
	RefinedPrompt string
}

// Provider is a direct text-completion generator.
type Provider struct {
	name     string
	chat     *chatClient
	enhancer *prompt.Enhancer
}

func newProvider(name string, chat *chatClient) *Provider {
	p := &Provider{name: name, chat: chat}
	p.enhancer = prompt.NewEnhancer(p)
	return p
}

// Name returns the registry name of the provider family.
func (p *Provider) Name() string {
	return p.name
}

// Complete fills template with question and runs one completion, without
// enhancement. It lets the provider serve as the enhancer's backend.
func (p *Provider) Complete(ctx context.Context, template, question string) (string, error) {
	return p.chat.complete(ctx, prompt.Fill(template, question))
}

// Query runs the completion, enhancing the input first when requested.
func (p *Provider) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	template := req.Template
	if strings.TrimSpace(template) == "" {
		template = prompt.QuestionPlaceholder
	}
	content := prompt.Fill(template, req.Input)

	var refined string
	if strings.TrimSpace(req.EnhancementTemplate) != "" {
		var err error
		refined, err = p.enhancer.Enhance(ctx, req.Input, req.EnhancementTemplate)
		if err != nil {
			return QueryResult{}, fmt.Errorf("enhance prompt: %w", err)
		}
		content = refined
	}

	answer, err := p.chat.complete(ctx, content)
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Text: answer, RefinedPrompt: refined}, nil
}

var _ prompt.Completer = (*Provider)(nil)
