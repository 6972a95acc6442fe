package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/generation"
)

const maxGenerationBody = 64 << 10

func (a *App) decodeRequest(w http.ResponseWriter, r *http.Request) (generation.Request, bool) {
	var req generation.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerationBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.badRequest(w, fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err))
		return req, false
	}
	return req, true
}

// GenerateText answers the question synchronously.
func (a *App) GenerateText(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeRequest(w, r)
	if !ok {
		return
	}
	a.outcome(w, http.StatusOK, a.Service.GenerateText(r.Context(), req))
}

// GenerateVideo starts a job and polls it in the background, answering 202
// with the pending record. With ?wait=true the handler polls inline.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeRequest(w, r)
	if !ok {
		return
	}
	out := a.Service.StartVideo(r.Context(), req)
	if out.Result.IsError {
		a.outcome(w, http.StatusOK, out)
		return
	}
	a.continueJob(w, r, out)
}

// ResumeVideo picks up polling for a stored job.
func (a *App) ResumeVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := a.Service.Conversation(r.Context(), id)
	if res.IsError {
		respond(a, w, http.StatusOK, res)
		return
	}
	c := res.Payload
	if !c.InProgress() {
		a.outcome(w, http.StatusOK, generation.Outcome{ID: c.ID, Result: res})
		return
	}
	a.continueJob(w, r, generation.Outcome{ID: c.ID, Result: res})
}

func (a *App) continueJob(w http.ResponseWriter, r *http.Request, pending generation.Outcome) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		a.outcome(w, http.StatusOK, a.Service.Resume(r.Context(), pending.ID))
		return
	}
	a.background(r.Context(), pending.ID)
	a.outcome(w, http.StatusAccepted, pending)
}

func (a *App) background(parent context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.JobTimeout)
	a.jobs.Add(1)
	go func() {
		defer a.jobs.Done()
		defer cancel()
		out := a.Service.Resume(ctx, id)
		if out.Result.IsError {
			a.Logger.Warn().
				Str("conversation_id", id).
				Str("error", out.Result.ErrorMessage).
				Msg("background video job ended without result")
			return
		}
		a.Logger.Info().Str("conversation_id", id).Msg("background video job finished")
	}()
}
