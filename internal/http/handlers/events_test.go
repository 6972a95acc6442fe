package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

type watchFrame struct {
	Payload struct {
		ID     string  `json:"id"`
		Answer *string `json:"answer"`
		Label  string  `json:"label"`
	} `json:"payload"`
	IsError bool `json:"is_error"`
}

func TestWatchConversationStreamsUntilAnswered(t *testing.T) {
	stub := newStub()
	pending := domain.NewConversation(domain.KindVideo, "a cat surfing")
	pending.ProviderState = &domain.ProviderState{Provider: "rhymes", JobID: "job-1"}
	stub.conversations[pending.ID] = pending

	app := NewApp(stub, nil, time.Minute)
	app.WatchInterval = 10 * time.Millisecond
	srv := httptest.NewServer(testRouter(app))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/conversations/" + pending.ID + "/events"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	var first watchFrame
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if first.IsError || first.Payload.ID != pending.ID || first.Payload.Answer != nil {
		t.Fatalf("first frame = %+v", first)
	}

	stub.mu.Lock()
	_ = pending.Complete("https://cdn.example.com/cat.mp4")
	stub.mu.Unlock()

	var last watchFrame
	if err := wsjson.Read(ctx, conn, &last); err != nil {
		t.Fatalf("read final frame: %v", err)
	}
	if last.Payload.Answer == nil || *last.Payload.Answer != "https://cdn.example.com/cat.mp4" {
		t.Fatalf("final frame = %+v", last)
	}
	if last.Payload.Label == "" {
		t.Fatalf("final frame has no label")
	}

	_, _, err = conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("close = %v, want normal closure", err)
	}
}

func TestWatchConversationFinishedRecordClosesAfterOneFrame(t *testing.T) {
	stub := newStub()
	done := domain.NewConversation(domain.KindText, "q")
	_ = done.Complete("a")
	stub.conversations[done.ID] = done
	srv := httptest.NewServer(testRouter(NewApp(stub, nil, time.Minute)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/conversations/"+done.ID+"/events", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	var frame watchFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Payload.Answer == nil || *frame.Payload.Answer != "a" {
		t.Fatalf("frame = %+v", frame)
	}
	_, _, err = conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("close = %v, want normal closure", err)
	}
}

func TestWatchConversationUnknownIDIsNotUpgraded(t *testing.T) {
	h := testRouter(NewApp(newStub(), nil, time.Minute))
	rec := do(t, h, http.MethodGet, "/conversations/missing/events", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if res := decodeResult(t, rec.Body.Bytes()); !res.IsError {
		t.Fatalf("expected error envelope")
	}
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"https://app.example.com", " ", "*", "localhost:3000"})
	want := []string{"app.example.com", "*", "localhost:3000"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("originPatterns = %v, want %v", got, want)
	}
}
