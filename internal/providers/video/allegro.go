package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/providers/prompt"
	"github.com/tomkat-cr/vitexbrain/internal/providers/text"
	"github.com/tomkat-cr/vitexbrain/internal/providers/transport"
)

// Name is the registry name of the Allegro video family.
const Name = "rhymes"

const (
	defaultBaseURL = "https://api.rhymes.ai/v1"
	userAgent      = "Apifox/1.0.0 (https://apifox.com)"

	numSteps = 50
	cfgScale = 7.5
)

// Options configures the Allegro provider.
type Options struct {
	APIKey  string
	BaseURL string
	// SuccessMarkers lists the "message" values that mean success. A reply
	// without a message counts as success when it carries data.
	SuccessMarkers []string
	// Text answers Query and enhancement calls. Nil disables both.
	Text       *text.Provider
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
	Clock      func() time.Time
}

// PollResult is the outcome of one status check.
type PollResult struct {
	Done      bool
	ResultURL string
	Message   string
}

// Allegro drives the Rhymes text-to-video API: one call starts a job and
// videoQuery reports on it.
type Allegro struct {
	client   *transport.Client
	baseURL  string
	apiKey   string
	markers  []string
	text     *text.Provider
	enhancer *prompt.Enhancer
	logger   *infra.Logger
	now      func() time.Time
}

type generateRequest struct {
	RefinedPrompt string  `json:"refined_prompt"`
	UserPrompt    string  `json:"user_prompt"`
	NumStep       int     `json:"num_step"`
	RandSeed      int64   `json:"rand_seed"`
	CfgScale      float64 `json:"cfg_scale"`
}

// envelope is the reply shape shared by both endpoints. Data holds the
// request id after generateVideoSyn and the video URL once videoQuery is done.
type envelope struct {
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// New validates opts and builds the provider.
func New(opts Options) (*Allegro, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w: allegro api key is required", Name, domain.ErrConfiguration)
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	markers := opts.SuccessMarkers
	if len(markers) == 0 {
		markers = infra.DefaultSuccessMarkers
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	a := &Allegro{
		client: transport.NewClient(transport.Options{
			Name:       Name,
			HTTPClient: opts.HTTPClient,
			Timeout:    opts.Timeout,
			Logger:     opts.Logger,
			UserAgent:  userAgent,
		}),
		baseURL: base,
		apiKey:  apiKey,
		markers: slices.Clone(markers),
		text:    opts.Text,
		logger:  infra.OrDiscard(opts.Logger),
		now:     now,
	}
	if opts.Text != nil {
		a.enhancer = prompt.NewEnhancer(opts.Text)
	}
	return a, nil
}

// Name returns the registry name.
func (a *Allegro) Name() string {
	return Name
}

// Query answers text prompts through the companion Aria model. It is used for
// suggestions and enhancement, never for the video itself.
func (a *Allegro) Query(ctx context.Context, req text.QueryRequest) (text.QueryResult, error) {
	if a.text == nil {
		return text.QueryResult{}, fmt.Errorf("%s: %w: no text model configured", Name, domain.ErrConfiguration)
	}
	return a.text.Query(ctx, req)
}

// Request starts a video job. With an enhancement template the refined text
// is sent as both the refined and the user prompt.
func (a *Allegro) Request(ctx context.Context, input, enhancementTemplate string) (domain.ProviderState, error) {
	refined := input
	if strings.TrimSpace(enhancementTemplate) != "" {
		if a.enhancer == nil {
			return domain.ProviderState{}, fmt.Errorf("%s: %w: prompt enhancement needs a text model", Name, domain.ErrConfiguration)
		}
		var err error
		refined, err = a.enhancer.Enhance(ctx, input, enhancementTemplate)
		if err != nil {
			return domain.ProviderState{}, fmt.Errorf("enhance prompt: %w", err)
		}
	}

	payload := generateRequest{
		RefinedPrompt: refined,
		UserPrompt:    refined,
		NumStep:       numSteps,
		RandSeed:      a.now().Unix(),
		CfgScale:      cfgScale,
	}
	var out envelope
	err := a.client.Do(ctx, transport.Request{
		URL:           a.baseURL + "/generateVideoSyn",
		Authorization: a.apiKey,
		Body:          payload,
	}, &out)
	if err != nil {
		return domain.ProviderState{}, err
	}

	jobID, msg, ok := a.accept(out)
	if !ok {
		return domain.ProviderState{}, a.businessError(msg)
	}
	a.logger.Info().Str("provider", Name).Str("job_id", jobID).Msg("video job started")

	return domain.ProviderState{
		Provider:      Name,
		JobID:         jobID,
		RefinedPrompt: refined,
		UserPrompt:    payload.UserPrompt,
		RandSeed:      payload.RandSeed,
		Message:       msg,
	}, nil
}

// Poll checks the job once. A reply that is not yet a success is reported as
// not done; only transport, status and decoding failures are errors.
func (a *Allegro) Poll(ctx context.Context, state domain.ProviderState) (PollResult, error) {
	jobID := strings.TrimSpace(state.JobID)
	if jobID == "" {
		return PollResult{}, fmt.Errorf("%s: %w: missing job id", Name, domain.ErrValidation)
	}
	var out envelope
	err := a.client.Do(ctx, transport.Request{
		Method:        http.MethodGet,
		URL:           a.baseURL + "/videoQuery",
		Query:         url.Values{"requestId": {jobID}},
		Authorization: a.apiKey,
	}, &out)
	if err != nil {
		return PollResult{}, err
	}

	videoURL, msg, ok := a.accept(out)
	if !ok {
		return PollResult{Message: msg}, nil
	}
	return PollResult{Done: true, ResultURL: videoURL, Message: msg}, nil
}

// accept applies the success rule: data present and, when a message is
// given, the message is one of the configured markers.
func (a *Allegro) accept(out envelope) (data, message string, ok bool) {
	data = dataString(out.Data)
	if out.Message != nil {
		message = *out.Message
		if !slices.Contains(a.markers, message) {
			return data, message, false
		}
	}
	return data, message, data != ""
}

func (a *Allegro) businessError(message string) error {
	if message == "" {
		message = "No message and no data"
	}
	return &domain.ProviderError{Provider: Name, Status: http.StatusOK, Message: message}
}

// dataString accepts a JSON string, number or null.
func dataString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
