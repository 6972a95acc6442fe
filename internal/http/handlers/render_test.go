package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

func TestRenderAnswer(t *testing.T) {
	c := domain.NewConversation(domain.KindText, "q")
	if html, err := renderAnswer(c); err != nil || html != "" {
		t.Fatalf("pending = %q, %v", html, err)
	}
	_ = c.Complete("# Tea\n\n- green\n- **black**\n\n<script>alert(1)</script>")
	html, err := renderAnswer(c)
	if err != nil {
		t.Fatalf("renderAnswer: %v", err)
	}
	for _, want := range []string{"<h1>Tea</h1>", "<li>green</li>", "<strong>black</strong>"} {
		if !strings.Contains(html, want) {
			t.Fatalf("html %q missing %q", html, want)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("raw html passed through: %q", html)
	}

	v := domain.NewConversation(domain.KindVideo, "q")
	_ = v.Complete("https://cdn.example.com/v.mp4")
	if html, _ := renderAnswer(v); html != "" {
		t.Fatalf("video rendered to %q", html)
	}
}

func TestGetConversationRender(t *testing.T) {
	stub := newStub()
	c := domain.NewConversation(domain.KindText, "q")
	_ = c.Complete("*hi*")
	stub.conversations[c.ID] = c
	h := testRouter(NewApp(stub, nil, time.Second))

	rec := do(t, h, http.MethodGet, "/conversations/"+c.ID+"?render=html", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view struct {
		AnswerHTML string `json:"answer_html"`
	}
	if err := json.Unmarshal(decodeResult(t, rec.Body.Bytes()).Payload, &view); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if view.AnswerHTML != "<p><em>hi</em></p>\n" {
		t.Fatalf("answer_html = %q", view.AnswerHTML)
	}

	rec = do(t, h, http.MethodGet, "/conversations/"+c.ID, "")
	if strings.Contains(rec.Body.String(), "answer_html") {
		t.Fatalf("answer_html without render: %s", rec.Body.String())
	}
	if rec = do(t, h, http.MethodGet, "/conversations/"+c.ID+"?render=pdf", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("render=pdf status = %d, want 400", rec.Code)
	}
}
