package generation

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/providers/text"
	"github.com/tomkat-cr/vitexbrain/internal/providers/video"
)

// TextFactory builds a text generator on first use.
type TextFactory func() (TextGenerator, error)

// VideoFactory builds a video generator on first use.
type VideoFactory func() (VideoGenerator, error)

// Registry maps provider names to generators. Each factory runs at most once
// successfully; later resolutions return the cached instance.
type Registry struct {
	mu         sync.Mutex
	text       map[string]TextFactory
	video      map[string]VideoFactory
	textCache  map[string]TextGenerator
	videoCache map[string]VideoGenerator
}

func NewRegistry() *Registry {
	return &Registry{
		text:       map[string]TextFactory{},
		video:      map[string]VideoFactory{},
		textCache:  map[string]TextGenerator{},
		videoCache: map[string]VideoGenerator{},
	}
}

// NewDefaultRegistry registers the OpenAI and Rhymes families from cfg.
// Credentials are checked when a family is first resolved, so a missing key
// only breaks the provider that needs it.
func NewDefaultRegistry(cfg *infra.Config, httpClient *http.Client, logger *infra.Logger) *Registry {
	r := NewRegistry()

	newAria := func() (*text.Provider, error) {
		return text.NewAria(text.AriaOptions{
			APIKey:     cfg.AriaAPIKey,
			BaseURL:    cfg.AriaBaseURL,
			Model:      cfg.AriaModel,
			HTTPClient: httpClient,
			Timeout:    cfg.ProviderTimeout,
			Logger:     logger,
		})
	}

	r.RegisterText(text.OpenAIName, func() (TextGenerator, error) {
		p, err := text.NewOpenAI(text.OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			MaxTokens:  cfg.OpenAIMaxTokens,
			HTTPClient: httpClient,
			Timeout:    cfg.ProviderTimeout,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	r.RegisterText(text.RhymesName, func() (TextGenerator, error) {
		p, err := newAria()
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	r.RegisterVideo(video.Name, func() (VideoGenerator, error) {
		opts := video.Options{
			APIKey:         cfg.AllegroAPIKey,
			BaseURL:        cfg.AllegroBaseURL,
			SuccessMarkers: cfg.SuccessMarkers,
			HTTPClient:     httpClient,
			Timeout:        cfg.ProviderTimeout,
			Logger:         logger,
		}
		// Enhancement and Query need Aria; without its key the provider
		// still generates videos from the raw prompt.
		if aria, err := newAria(); err == nil {
			opts.Text = aria
		} else {
			infra.OrDiscard(logger).Warn().Err(err).Msg("video: aria unavailable, prompt enhancement disabled")
		}
		v, err := video.New(opts)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	return r
}

// RegisterText adds or replaces a text family.
func (r *Registry) RegisterText(name string, f TextFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeName(name)
	r.text[key] = f
	delete(r.textCache, key)
}

// RegisterVideo adds or replaces a video family.
func (r *Registry) RegisterVideo(name string, f VideoFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeName(name)
	r.video[key] = f
	delete(r.videoCache, key)
}

// ResolveText returns the text generator registered under name.
func (r *Registry) ResolveText(name string) (TextGenerator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeName(name)
	if g, ok := r.textCache[key]; ok {
		return g, nil
	}
	f, ok := r.text[key]
	if !ok {
		return nil, unknownProvider(domain.KindText, name, r.text)
	}
	g, err := f()
	if err != nil {
		return nil, err
	}
	r.textCache[key] = g
	return g, nil
}

// ResolveVideo returns the video generator registered under name.
func (r *Registry) ResolveVideo(name string) (VideoGenerator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeName(name)
	if g, ok := r.videoCache[key]; ok {
		return g, nil
	}
	f, ok := r.video[key]
	if !ok {
		return nil, unknownProvider(domain.KindVideo, name, r.video)
	}
	g, err := f()
	if err != nil {
		return nil, err
	}
	r.videoCache[key] = g
	return g, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func unknownProvider[F any](kind domain.Kind, name string, known map[string]F) error {
	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Errorf("%w: no %s provider named %q (available: %s)",
		domain.ErrConfiguration, kind, name, strings.Join(names, ", "))
}
