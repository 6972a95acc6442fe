package handlers

import (
	"net/http"
	"time"
)

type healthReply struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func (a *App) Health(w http.ResponseWriter, _ *http.Request) {
	a.json(w, http.StatusOK, healthReply{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)})
}
