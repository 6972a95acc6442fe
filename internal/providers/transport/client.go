package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 8 << 20
)

// Options configures a provider transport client.
type Options struct {
	// Name prefixes errors and log lines, e.g. "rhymes".
	Name       string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
	UserAgent  string
}

// Client sends one HTTP request per call to a generation vendor and decodes
// the JSON reply. It keeps no per-call state.
type Client struct {
	name       string
	httpClient *http.Client
	logger     *infra.Logger
	userAgent  string
}

// Request describes a single vendor call. A nil Body with method GET sends
// only the Authorization header plus Query as URL parameters.
type Request struct {
	Method        string
	URL           string
	Query         url.Values
	Authorization string
	Headers       map[string]string
	Body          any
}

// NewClient constructs a client with defaults for anything left unset.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "provider"
	}
	return &Client{
		name:       name,
		httpClient: httpClient,
		logger:     infra.OrDiscard(opts.Logger),
		userAgent:  opts.UserAgent,
	}
}

// Name returns the label used in errors.
func (c *Client) Name() string {
	return c.name
}

// Do performs req and decodes a 200 response into out. Failures map onto the
// domain taxonomy: transport problems are ErrNetwork, any status other than
// 200 is a *domain.ProviderError, and bodies that do not decode are
// ErrSerialization.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w: %w", c.name, domain.ErrNetwork, ctxErr)
		}
		return fmt.Errorf("%s: %w: %v", c.name, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: %w: read response: %v", c.name, domain.ErrNetwork, err)
	}

	c.logger.Debug().
		Str("provider", c.name).
		Str("method", httpReq.Method).
		Str("url", redactURL(httpReq.URL)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("provider call")

	if resp.StatusCode != http.StatusOK {
		return &domain.ProviderError{
			Provider: c.name,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%s: %w: empty response body", c.name, domain.ErrSerialization)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: decode response: %v", c.name, domain.ErrSerialization, err)
	}
	return nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	endpoint, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("%s: %w: invalid endpoint %q", c.name, domain.ErrConfiguration, req.URL)
	}
	if len(req.Query) > 0 {
		q := endpoint.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		endpoint.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: encode request: %v", c.name, domain.ErrSerialization, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	clone.User = nil
	return clone.String()
}
