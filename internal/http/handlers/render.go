package handlers

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
)

// Raw HTML in model output is escaped; goldmark only passes it through with
// the unsafe renderer option.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderAnswer converts a finished text answer from markdown to HTML. Video
// answers and pending records render to "".
func renderAnswer(c *domain.Conversation) (string, error) {
	if c.Kind != domain.KindText || c.Answer == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(*c.Answer), &buf); err != nil {
		return "", fmt.Errorf("render answer: %w", err)
	}
	return buf.String(), nil
}
