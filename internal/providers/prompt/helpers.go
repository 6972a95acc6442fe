package prompt

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON object in model output")

// decodeModelJSON pulls the outermost JSON object or array out of a model
// reply, tolerating markdown fences and chatter around it, and decodes it
// into v.
func decodeModelJSON(raw string, v any) error {
	fragment := jsonFragment(stripFence(raw))
	if fragment == "" {
		return errNoJSON
	}
	return json.Unmarshal([]byte(fragment), v)
}

func jsonFragment(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	end := strings.LastIndexAny(s, "]}")
	if end < start {
		return ""
	}
	return s[start : end+1]
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	body, ok := strings.CutPrefix(s, "```")
	if !ok {
		return s
	}
	// Drop the info string, e.g. "json".
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
