package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/generation"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

// Lifecycle is the conversation service the handlers expose.
type Lifecycle interface {
	GenerateText(ctx context.Context, req generation.Request) generation.Outcome
	StartVideo(ctx context.Context, req generation.Request) generation.Outcome
	Resume(ctx context.Context, id string) generation.Outcome
	Suggestions(ctx context.Context, qty int) domain.Result[[]string]
	Conversations(ctx context.Context, opts store.ListOptions) domain.Result[[]*domain.Conversation]
	Conversation(ctx context.Context, id string) domain.Result[*domain.Conversation]
	Delete(ctx context.Context, id string) domain.Result[string]
	Import(ctx context.Context, snapshots ...domain.Snapshot) domain.Result[store.ImportSummary]
	Export(ctx context.Context) domain.Result[domain.Snapshot]
	Gallery(ctx context.Context) domain.Result[[]string]
}

type App struct {
	Service Lifecycle
	Logger  *infra.Logger
	// JobTimeout bounds background video polling started by a request.
	JobTimeout time.Duration
	// AllowedOrigins gates websocket upgrades; empty means same host only.
	AllowedOrigins []string
	WatchInterval  time.Duration

	jobs sync.WaitGroup
}

func NewApp(svc Lifecycle, logger *infra.Logger, jobTimeout time.Duration) *App {
	return &App{Service: svc, Logger: infra.OrDiscard(logger), JobTimeout: jobTimeout}
}

// Drain waits for background jobs until ctx is done.
func (a *App) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes the envelope with the status its error kind maps to.
func respond[T any](a *App, w http.ResponseWriter, okStatus int, res domain.Result[T]) {
	a.json(w, statusFor(res.Kind(), okStatus), res)
}

func (a *App) outcome(w http.ResponseWriter, okStatus int, out generation.Outcome) {
	a.json(w, statusFor(out.Result.Kind(), okStatus), out)
}

func (a *App) badRequest(w http.ResponseWriter, err error) {
	a.json(w, http.StatusBadRequest, domain.Fail[any](err))
}

func statusFor(kind domain.ErrorKind, okStatus int) int {
	switch kind {
	case domain.KindNone:
		return okStatus
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindProvider, domain.KindNetwork, domain.KindSerialization:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
