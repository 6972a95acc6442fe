package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

const maxSuggestions = 20

func (a *App) Suggestions(w http.ResponseWriter, r *http.Request) {
	qty := 0
	if raw := r.URL.Query().Get("qty"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxSuggestions {
			a.badRequest(w, fmt.Errorf("%w: qty must be between 0 and %d", domain.ErrValidation, maxSuggestions))
			return
		}
		qty = n
	}
	respond(a, w, http.StatusOK, a.Service.Suggestions(r.Context(), qty))
}
