package domain

// Result is the envelope handed to callers outside the core. IsError is true
// exactly when ErrorMessage is non-empty; Payload is only meaningful otherwise.
type Result[T any] struct {
	Payload      T      `json:"payload"`
	ErrorMessage string `json:"error_message,omitempty"`
	IsError      bool   `json:"is_error"`

	err error
}

const unknownErrorMessage = "unknown error"

// OK wraps a successful payload.
func OK[T any](payload T) Result[T] {
	return Result[T]{Payload: payload}
}

// Fail wraps err. A nil err, or one with an empty message, still produces an
// error envelope so the IsError/ErrorMessage pairing never breaks.
func Fail[T any](err error) Result[T] {
	if err == nil {
		return Result[T]{ErrorMessage: unknownErrorMessage, IsError: true}
	}
	msg := err.Error()
	if msg == "" {
		msg = unknownErrorMessage
	}
	return Result[T]{ErrorMessage: msg, IsError: true, err: err}
}

// From builds the envelope from a conventional (value, error) pair.
func From[T any](payload T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(payload)
}

// Err returns the wrapped error, or nil for a successful result.
func (r Result[T]) Err() error {
	if !r.IsError {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return errorString(r.ErrorMessage)
}

// Kind classifies the wrapped error.
func (r Result[T]) Kind() ErrorKind {
	return KindOf(r.Err())
}

type errorString string

func (e errorString) Error() string { return string(e) }
