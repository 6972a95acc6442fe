package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

// Suggestions maps keys s1..sN to prompt ideas.
type Suggestions map[string]string

// Ordered returns the values by key index.
func (s Suggestions) Ordered() []string {
	out := make([]string, 0, len(s))
	for i := 1; i <= len(s); i++ {
		if v, ok := s[suggestionKey(i)]; ok {
			out = append(out, v)
		}
	}
	return out
}

// DefaultSuggestions is served whenever the model output cannot be used.
func DefaultSuggestions() Suggestions {
	return Suggestions{
		"s1": "Step-by-step tutorial to make tea, presented in an animated format",
		"s2": "Landscape photography of a mountain in the Swiss Alps",
		"s3": "Give me ideas for the summer vacation in Hawaii",
		"s4": "Give me the ReactJs code for a AI Assistant, using Shadcn/UI",
	}
}

// Suggester asks a text model for prompt ideas.
type Suggester struct {
	completer Completer
	logger    *infra.Logger
}

func NewSuggester(completer Completer, logger *infra.Logger) *Suggester {
	return &Suggester{completer: completer, logger: infra.OrDiscard(logger)}
}

// Suggest returns qty ideas. A failed completion call or model output that
// does not parse into exactly the keys s1..s<qty> yields DefaultSuggestions.
// Only a cancelled ctx is reported as an error.
func (s *Suggester) Suggest(ctx context.Context, qty int) (Suggestions, error) {
	if qty <= 0 {
		qty = len(DefaultSuggestions())
	}
	raw, err := s.completer.Complete(ctx, SuggestionsTemplate, strconv.Itoa(qty))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn().Err(err).Msg("suggestions: completion failed, using defaults")
		return DefaultSuggestions(), nil
	}
	parsed, err := ParseSuggestions(raw, qty)
	if err != nil {
		s.logger.Debug().Err(err).Msg("suggestions: using defaults")
		return DefaultSuggestions(), nil
	}
	return parsed, nil
}

// ParseSuggestions strictly decodes model output into qty suggestions.
func ParseSuggestions(raw string, qty int) (Suggestions, error) {
	text := strings.NewReplacer("\n", "", "\r", "").Replace(raw)
	text = strings.ReplaceAll(text, "Suggestions:", "")
	var decoded map[string]string
	if err := decodeModelJSON(text, &decoded); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	out := Suggestions{}
	for i := 1; i <= qty; i++ {
		key := suggestionKey(i)
		v := strings.TrimSpace(decoded[key])
		if v == "" {
			return nil, fmt.Errorf("suggestion %s missing", key)
		}
		out[key] = v
	}
	return out, nil
}

func suggestionKey(i int) string {
	return "s" + strconv.Itoa(i)
}
