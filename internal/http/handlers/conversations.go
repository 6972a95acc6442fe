package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

// conversationView adds the display fields listings render.
type conversationView struct {
	*domain.Conversation
	Label      string `json:"label"`
	DateTime   string `json:"date_time"`
	AnswerHTML string `json:"answer_html,omitempty"`
}

func viewOf(c *domain.Conversation) conversationView {
	return conversationView{Conversation: c, Label: c.Label(), DateTime: c.DateTime()}
}

// ListConversations accepts ?sort=timestamp|question|type and ?order=asc|desc.
func (a *App) ListConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := a.Service.Conversations(r.Context(), store.ListOptions{
		SortField: q.Get("sort"),
		Order:     q.Get("order"),
	})
	if res.IsError {
		respond(a, w, http.StatusOK, res)
		return
	}
	views := make([]conversationView, 0, len(res.Payload))
	for _, c := range res.Payload {
		views = append(views, viewOf(c))
	}
	respond(a, w, http.StatusOK, domain.OK(views))
}

// GetConversation loads one record. ?render=html adds the text answer
// rendered from markdown.
func (a *App) GetConversation(w http.ResponseWriter, r *http.Request) {
	res := a.Service.Conversation(r.Context(), chi.URLParam(r, "id"))
	if res.IsError {
		respond(a, w, http.StatusOK, res)
		return
	}
	view := viewOf(res.Payload)
	switch r.URL.Query().Get("render") {
	case "":
	case "html":
		html, err := renderAnswer(res.Payload)
		if err != nil {
			respond(a, w, http.StatusOK, domain.Fail[conversationView](err))
			return
		}
		view.AnswerHTML = html
	default:
		a.badRequest(w, fmt.Errorf("%w: render must be html", domain.ErrValidation))
		return
	}
	respond(a, w, http.StatusOK, domain.OK(view))
}

func (a *App) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	respond(a, w, http.StatusOK, a.Service.Delete(r.Context(), chi.URLParam(r, "id")))
}

// Videos lists the URLs of finished videos, newest first.
func (a *App) Videos(w http.ResponseWriter, r *http.Request) {
	res := a.Service.Gallery(r.Context())
	if res.Payload == nil && !res.IsError {
		res.Payload = []string{}
	}
	respond(a, w, http.StatusOK, res)
}
