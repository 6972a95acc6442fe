package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

type stubCompleter struct {
	reply     string
	err       error
	templates []string
	questions []string
}

func (s *stubCompleter) Complete(_ context.Context, template, question string) (string, error) {
	s.templates = append(s.templates, template)
	s.questions = append(s.questions, question)
	return s.reply, s.err
}

func TestCleanRefinedPrompt(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{" \nRefined Prompt: \"Make tea\"\r\n", "Make tea"},
		{"A calm\nforest\rat dawn", "A calm forest at dawn"},
		{"\"quoted\"", "quoted"},
		{"“curly”", "curly"},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := CleanRefinedPrompt(tc.raw); got != tc.want {
			t.Fatalf("CleanRefinedPrompt(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestEnhanceUsesTemplateAndCleans(t *testing.T) {
	stub := &stubCompleter{reply: "Refined Prompt: \"Brew green tea step by step\"\n"}
	e := NewEnhancer(stub)

	got, err := e.Enhance(context.Background(), "make tea", RefineVideoTemplate)
	if err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if got != "Brew green tea step by step" {
		t.Fatalf("Enhance = %q", got)
	}
	if len(stub.templates) != 1 || stub.templates[0] != RefineVideoTemplate {
		t.Fatalf("template not forwarded: %#v", stub.templates)
	}
	if stub.questions[0] != "make tea" {
		t.Fatalf("question = %q", stub.questions[0])
	}
}

func TestEnhanceDefaultsTemplate(t *testing.T) {
	stub := &stubCompleter{reply: "better"}
	if _, err := NewEnhancer(stub).Enhance(context.Background(), "q", ""); err != nil {
		t.Fatalf("Enhance returned error: %v", err)
	}
	if stub.templates[0] != DefaultEnhancementTemplate {
		t.Fatalf("expected default template")
	}
}

func TestEnhancePropagatesErrorUnchanged(t *testing.T) {
	want := &domain.ProviderError{Provider: "openai", Status: 401}
	stub := &stubCompleter{err: want}
	_, err := NewEnhancer(stub).Enhance(context.Background(), "q", "t {question}")
	if err != want {
		t.Fatalf("err = %v, want the completer error itself", err)
	}
}

func TestEnhanceRejectsEmptyRewrite(t *testing.T) {
	stub := &stubCompleter{reply: "Refined Prompt: \"\""}
	_, err := NewEnhancer(stub).Enhance(context.Background(), "q", "")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}

func TestFill(t *testing.T) {
	if got := Fill("Q: {question}?", "why"); got != "Q: why?" {
		t.Fatalf("Fill = %q", got)
	}
	if got := Fill("literal", "why"); got != "literal" {
		t.Fatalf("Fill without placeholder = %q", got)
	}
	if !strings.Contains(Fill(RefineTextTemplate, "abc"), "*USER PROMPT*\nabc") {
		t.Fatalf("RefineTextTemplate placeholder missing")
	}
}
