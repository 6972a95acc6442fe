package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

// Completer runs a single text completion of template filled with question.
// Implementations must not enhance the prompt themselves.
type Completer interface {
	Complete(ctx context.Context, template, question string) (string, error)
}

// Enhancer rewrites user prompts through a secondary completion.
type Enhancer struct {
	completer Completer
}

func NewEnhancer(completer Completer) *Enhancer {
	return &Enhancer{completer: completer}
}

// Enhance returns the cleaned rewrite of userPrompt. An empty template selects
// DefaultEnhancementTemplate. Completion errors are returned unchanged.
func (e *Enhancer) Enhance(ctx context.Context, userPrompt, template string) (string, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultEnhancementTemplate
	}
	raw, err := e.completer.Complete(ctx, template, userPrompt)
	if err != nil {
		return "", err
	}
	refined := CleanRefinedPrompt(raw)
	if refined == "" {
		return "", fmt.Errorf("%w: prompt enhancement returned no text", domain.ErrProvider)
	}
	return refined, nil
}

// CleanRefinedPrompt normalises raw enhancer output: line breaks become
// spaces, a "Refined Prompt:" label is dropped, and double quotes and
// surrounding whitespace are removed.
func CleanRefinedPrompt(raw string) string {
	text := strings.NewReplacer("\n", " ", "\r", " ").Replace(raw)
	text = strings.ReplaceAll(text, "Refined Prompt:", "")
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, `"`, "")
	text = strings.TrimPrefix(text, "“")
	text = strings.TrimSuffix(text, "”")
	return strings.TrimSpace(text)
}

// Fill substitutes question into template's placeholder. Templates without a
// placeholder are returned unchanged.
func Fill(template, question string) string {
	return strings.ReplaceAll(template, QuestionPlaceholder, question)
}
