package lifecycle

import (
	"errors"
	"fmt"

	"github.com/axonkit/uowkernel/phase"
)

// ErrTooLate is returned by On when a handler is registered for a phase that
// has already started or finished draining.
var ErrTooLate = errors.New("lifecycle: registration too late for phase")

// ErrAlreadyCommitted is returned by Commit when called more than once on
// the same ProcessingContext.
var ErrAlreadyCommitted = errors.New("lifecycle: already committed")

// HandlerFailure is the recorded first-failure cause of a ProcessingContext:
// the phase in which a handler failed, and the error it returned. It is the
// error value every on_error hook receives and the value Commit's error
// ultimately wraps.
type HandlerFailure struct {
	Phase phase.Phase
	Cause error
}

func (f *HandlerFailure) Error() string {
	return fmt.Sprintf("lifecycle: handler failed in phase %s: %v", f.Phase, f.Cause)
}

func (f *HandlerFailure) Unwrap() error {
	return f.Cause
}

// RegistrationError wraps ErrTooLate with the phase that was rejected and
// the current phase the context had already advanced past.
type RegistrationError struct {
	Requested phase.Phase
	Current   phase.Phase
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("lifecycle: cannot register for phase %s, current phase is %s",
		e.Requested, e.Current)
}

func (e *RegistrationError) Unwrap() error {
	return ErrTooLate
}
