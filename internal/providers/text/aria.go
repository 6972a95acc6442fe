package text

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

// RhymesName is the registry name of the Rhymes provider family.
const RhymesName = "rhymes"

const (
	defaultAriaBaseURL = "https://api.rhymes.ai/v1"
	defaultAriaModel   = "aria"
)

// AriaOptions configures the Rhymes Aria completion provider.
type AriaOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// NewAria builds the Rhymes Aria provider. Aria speaks the OpenAI chat
// protocol but needs its end-of-message stop token.
func NewAria(opts AriaOptions) (*Provider, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("rhymes: %w: aria api key is required", domain.ErrConfiguration)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultAriaModel
	}
	chat := newChatClient(chatOptions{
		name:       RhymesName,
		apiKey:     apiKey,
		baseURL:    baseURLOr(opts.BaseURL, defaultAriaBaseURL),
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	})
	chat.model = model
	chat.temperature = 0.5
	chat.topP = 1
	chat.stop = []string{"<|im_end|>"}
	return newProvider(RhymesName, chat), nil
}
