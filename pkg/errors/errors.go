package errors

import (
	"errors"
	"fmt"
)

// Protocol sentinel lines terminating every server response.
const (
	DoneMarker        = "** DONE **"
	SyntaxErrorMarker = "** SYNTAX ERROR **"
)

var (
	ErrSyntax        = errors.New("syntax error")
	ErrUnknownCorpus = errors.New("unknown corpus")
	ErrFormat        = errors.New("malformed file")
	ErrOutOfRange    = errors.New("value out of range")
	ErrNotAvailable  = errors.New("resource not available")
	ErrTimeout       = errors.New("operation timed out")
	ErrInternal      = errors.New("internal error")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Marker maps a request outcome to the sentinel line the client sees. The
// protocol has a single failure marker, so everything that is not a success
// ends with the syntax-error line.
func Marker(err error) string {
	if err == nil {
		return DoneMarker
	}
	return SyntaxErrorMarker
}

// IsClientError reports whether err was caused by the request itself rather
// than by the server's data or environment.
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrSyntax),
		errors.Is(err, ErrUnknownCorpus),
		errors.Is(err, ErrNotAvailable):
		return true
	default:
		return false
	}
}
