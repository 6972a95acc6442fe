package text

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

const defaultChatTimeout = 60 * time.Second

// chatClient talks to an OpenAI compatible /chat/completions endpoint.
type chatClient struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
	stop        []string
	logger      *infra.Logger
}

type chatOptions struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *infra.Logger
}

func newChatClient(opts chatOptions) *chatClient {
	cfg := openai.DefaultConfig(opts.apiKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(opts.baseURL), "/")
	httpClient := opts.httpClient
	if httpClient == nil {
		timeout := opts.timeout
		if timeout <= 0 {
			timeout = defaultChatTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg.HTTPClient = httpClient
	return &chatClient{
		name:   opts.name,
		client: openai.NewClientWithConfig(cfg),
		logger: infra.OrDiscard(opts.logger),
	}
}

func (c *chatClient) complete(ctx context.Context, content string) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: content}},
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
		Stop:        c.stop,
	})
	c.logger.Debug().
		Str("provider", c.name).
		Str("model", c.model).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("chat completion")
	if err != nil {
		return "", c.mapError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: response has no choices", c.name, domain.ErrSerialization)
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError folds go-openai failures into the domain taxonomy.
func (c *chatClient) mapError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{Provider: c.name, Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.ProviderError{Provider: c.name, Status: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%s: %w: decode response: %v", c.name, domain.ErrSerialization, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", c.name, domain.ErrNetwork, ctxErr)
	}
	return fmt.Errorf("%s: %w: %v", c.name, domain.ErrNetwork, err)
}

func baseURLOr(baseURL, fallback string) string {
	if strings.TrimSpace(baseURL) == "" {
		return fallback
	}
	return baseURL
}
