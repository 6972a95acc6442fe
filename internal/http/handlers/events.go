package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

const defaultWatchInterval = 2 * time.Second

// WatchConversation streams a conversation over a websocket. A snapshot is
// pushed whenever the stored record changes and the socket closes normally
// once the answer is set. Unknown ids are rejected before the upgrade.
func (a *App) WatchConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := a.Service.Conversation(r.Context(), id)
	if res.IsError {
		respond(a, w, http.StatusOK, res)
		return
	}

	// The server write timeout would otherwise cut long watches short.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(a.AllowedOrigins),
	})
	if err != nil {
		a.Logger.Warn().Err(err).Str("conversation_id", id).Msg("websocket accept failed")
		return
	}
	defer ws.CloseNow()

	// Client messages are ignored; the context ends when the peer goes away.
	ctx := ws.CloseRead(r.Context())
	interval := a.WatchInterval
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []byte
	for {
		frame, err := json.Marshal(domain.OK(viewOf(res.Payload)))
		if err != nil {
			ws.Close(websocket.StatusInternalError, "encode failed")
			return
		}
		if !bytes.Equal(frame, last) {
			if err := a.send(ctx, ws, frame); err != nil {
				a.Logger.Debug().Err(err).Str("conversation_id", id).Msg("websocket write failed")
				return
			}
			last = frame
		}
		if res.Payload.Answer != nil {
			ws.Close(websocket.StatusNormalClosure, "conversation finished")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res = a.Service.Conversation(ctx, id)
		if res.IsError {
			_ = wsjson.Write(ctx, ws, res)
			ws.Close(websocket.StatusInternalError, "conversation lookup failed")
			return
		}
	}
}

func (a *App) send(ctx context.Context, ws *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, frame)
}

// originPatterns turns CORS origins into the host patterns the websocket
// handshake matches against. No origins means same-host only.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		out = append(out, o)
	}
	return out
}
