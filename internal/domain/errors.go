package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrNetwork       = errors.New("network error")
	ErrProvider      = errors.New("provider error")
	ErrSerialization = errors.New("serialization error")
	ErrTimeout       = errors.New("generation timed out")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
)

// ProviderError reports a vendor response that was delivered but not successful:
// either a non-200 HTTP status or a 200 whose business status signals failure.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
	Message  string
}

func (e *ProviderError) Error() string {
	sb := &strings.Builder{}
	if e.Provider != "" {
		sb.WriteString(e.Provider)
		sb.WriteString(": ")
	}
	switch {
	case e.Message != "" && e.Status != 0:
		fmt.Fprintf(sb, "%s (status %d)", e.Message, e.Status)
	case e.Message != "":
		sb.WriteString(e.Message)
	default:
		fmt.Fprintf(sb, "request failed with status code %d", e.Status)
	}
	if body := strings.TrimSpace(e.Body); body != "" && e.Message == "" {
		fmt.Fprintf(sb, ": %s", truncate(body, 512))
	}
	return sb.String()
}

func (e *ProviderError) Unwrap() error { return ErrProvider }

// ErrorKind is a stable classification of an error chain.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindConfiguration ErrorKind = "configuration"
	KindNetwork       ErrorKind = "network"
	KindProvider      ErrorKind = "provider"
	KindSerialization ErrorKind = "serialization"
	KindTimeout       ErrorKind = "timeout"
	KindNotFound      ErrorKind = "not_found"
	KindValidation    ErrorKind = "validation"
	KindInternal      ErrorKind = "internal"
)

// KindOf maps err onto the taxonomy. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrProvider):
		return KindProvider
	case errors.Is(err, ErrSerialization):
		return KindSerialization
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
