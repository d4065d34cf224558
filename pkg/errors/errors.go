// Package errors defines the sentinel errors shared by the search server and
// an AppError wrapper that attaches a human-readable message and a Kind to a
// sentinel while staying compatible with errors.Is and errors.As.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("dependency unavailable")
)

// Kind classifies an error for logging and metric labels.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindUnavailable     Kind = "unavailable"
	KindInternal        Kind = "internal"
)

type AppError struct {
	Err     error
	Message string
	Kind    Kind
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
		Kind:    kindOfSentinel(sentinel),
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
		Kind:    kindOfSentinel(sentinel),
	}
}

// KindOf reports the Kind of err, looking through wrapping.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return kindOfSentinel(err)
}

func kindOfSentinel(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}
