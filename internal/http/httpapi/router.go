package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/http/handlers"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/middleware"
)

// Options carries the router settings taken from configuration.
type Options struct {
	AllowedOrigins []string
	// GenerationRateLimit is requests per minute per client IP on the
	// generation routes; zero disables it.
	GenerationRateLimit int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*infra.OrDiscard(app.Logger)),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	limit := middleware.RateLimit(opts.GenerationRateLimit, time.Minute, tooManyRequests)

	r.Route("/v1/generations", func(r chi.Router) {
		r.Use(limit)
		r.Post("/text", app.GenerateText)
		r.Post("/video", app.GenerateVideo)
	})

	r.Route("/v1/conversations", func(r chi.Router) {
		r.Get("/", app.ListConversations)
		r.Get("/{id}", app.GetConversation)
		r.Get("/{id}/events", app.WatchConversation)
		r.Delete("/{id}", app.DeleteConversation)
		r.With(limit).Post("/{id}/resume", app.ResumeVideo)
	})

	r.Route("/v1/data", func(r chi.Router) {
		r.Post("/import", app.ImportConversations)
		r.Get("/export", app.ExportConversations)
	})

	r.Get("/v1/suggestions", app.Suggestions)
	r.Get("/v1/videos", app.Videos)

	return r
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(domain.Fail[any](errors.New("too many generation requests, try again later")))
}
