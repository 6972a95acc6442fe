package text

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

// OpenAIName is the registry name of the OpenAI text family.
const OpenAIName = "openai"

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

var openAIModelAliases = map[string]string{
	"gpt4o-mini":    "gpt-4o-mini",
	"gpt4omini":     "gpt-4o-mini",
	"gpt-4omini":    "gpt-4o-mini",
	"gpt4o":         "gpt-4o",
	"gpt-3.5":       "gpt-3.5-turbo",
	"gpt3.5":        "gpt-3.5-turbo",
	"gpt-35-turbo":  "gpt-3.5-turbo",
	"gpt35-turbo":   "gpt-3.5-turbo",
	"gpt-3-5-turbo": "gpt-3.5-turbo",
}

// OpenAIOptions configures the OpenAI chat completion provider.
type OpenAIOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	TopP        float64
	MaxTokens   int
	HTTPClient  *http.Client
	Timeout     time.Duration
	Logger      *infra.Logger
}

// NewOpenAI builds the direct completion provider backed by OpenAI.
func NewOpenAI(opts OpenAIOptions) (*Provider, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w: api key is required", domain.ErrConfiguration)
	}
	logger := infra.OrDiscard(opts.Logger)
	model, aliased := normalizeOpenAIModel(opts.Model)
	if aliased {
		logger.Warn().Str("requested", opts.Model).Str("resolved", model).Msg("openai: model alias resolved")
	}
	chat := newChatClient(chatOptions{
		name:       OpenAIName,
		apiKey:     apiKey,
		baseURL:    baseURLOr(opts.BaseURL, defaultOpenAIBaseURL),
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		logger:     logger,
	})
	chat.model = model
	chat.temperature = float32(orDefault(opts.Temperature, 0.5))
	chat.topP = float32(orDefault(opts.TopP, 1))
	chat.maxTokens = opts.MaxTokens
	return newProvider(OpenAIName, chat), nil
}

// normalizeOpenAIModel lowercases the model id and resolves common spelling
// variants. Unknown ids are passed through.
func normalizeOpenAIModel(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, false
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if alias, ok := openAIModelAliases[normalized]; ok {
		return alias, true
	}
	return normalized, false
}

func orDefault(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
