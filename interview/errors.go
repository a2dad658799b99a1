package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity is returned when the caller is neither authenticated nor supplied an email.
	ErrMissingIdentity = errors.New("email is missing")
	// ErrNotFound is the parent of every lookup failure below.
	ErrNotFound          = errors.New("not found")
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrApplicantNotFound = fmt.Errorf("applicant %w", ErrNotFound)
	ErrSessionNotFound   = fmt.Errorf("session %w", ErrNotFound)
	// ErrInvalidInput covers malformed turns such as blank applicant text.
	ErrInvalidInput = errors.New("invalid input")
)

// InternalError wraps any failure that is not the caller's fault: model
// errors and timeouts, template rendering, persistence.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// asInternal leaves caller-facing errors alone and wraps everything else.
func asInternal(err error) error {
	if err == nil {
		return nil
	}
	var ie *InternalError
	if errors.Is(err, ErrMissingIdentity) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) || errors.As(err, &ie) {
		return err
	}
	return &InternalError{Err: err}
}
