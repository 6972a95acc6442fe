package generation

import (
	"net/http"

	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

// NewFromConfig builds a Service over st with the default provider registry
// and a poller sized from cfg.
func NewFromConfig(cfg *infra.Config, st store.Store, logger *infra.Logger) *Service {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	registry := NewDefaultRegistry(cfg, httpClient, logger)
	poller := NewPoller(st, cfg.PollAttempts, cfg.PollDelay, logger)
	return NewService(registry, st, poller, Options{
		TextProvider:   cfg.LLMProvider,
		VideoProvider:  cfg.VideoProvider,
		SuggestionsQty: cfg.SuggestionsQty,
	}, logger)
}
