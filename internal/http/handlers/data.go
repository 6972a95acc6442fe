package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

const maxImportBody = 32 << 20

// ImportConversations accepts one snapshot object or an array of them.
func (a *App) ImportConversations(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)
	snaps, err := store.DecodeSnapshots(r.Body)
	if err != nil {
		a.badRequest(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	respond(a, w, http.StatusOK, a.Service.Import(r.Context(), snaps...))
}

// ExportConversations returns the envelope, or with ?download=1 the bare
// snapshot as an attachment that ImportConversations accepts back.
func (a *App) ExportConversations(w http.ResponseWriter, r *http.Request) {
	res := a.Service.Export(r.Context())
	download, _ := strconv.ParseBool(r.URL.Query().Get("download"))
	if res.IsError || !download {
		respond(a, w, http.StatusOK, res)
		return
	}
	name := fmt.Sprintf("conversations-%s.json", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(res.Payload)
}
