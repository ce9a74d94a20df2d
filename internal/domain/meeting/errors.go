package meeting

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInput        = errors.New("invalid input")
	ErrProvider     = errors.New("provider error")
	ErrNotFound     = errors.New("not found")
	ErrTransient    = errors.New("temporarily unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a taxonomy kind and the operation that failed. errors.Is
// matches both the kind and the wrapped cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func InputError(op, format string, args ...any) error {
	return &Error{Kind: ErrInput, Op: op, Err: fmt.Errorf(format, args...)}
}

func NotFoundError(op, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// ProviderError wraps a collaborator failure. Context expiry is reported as
// transient since the caller may simply retry.
func ProviderError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: ErrTransient, Op: op, Err: err}
	}
	return &Error{Kind: ErrProvider, Op: op, Err: err}
}

func TransientError(op string, err error) error {
	return &Error{Kind: ErrTransient, Op: op, Err: err}
}

// UserMessage maps an error onto text that is safe to show to an end user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput), errors.Is(err, ErrNotFound):
		return "We couldn't find a match. Please try different preferences or participants."
	case errors.Is(err, ErrUnauthorized):
		return "Please sign in again."
	case errors.Is(err, ErrTransient):
		return "The request took too long. Please try again."
	default:
		return "Something went wrong on our side. Please try again later."
	}
}
