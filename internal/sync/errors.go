package sync

import (
	"errors"
	"fmt"

	"github.com/NickRomanek/SasWatch-sub002/internal/directory"
	"github.com/NickRomanek/SasWatch-sub002/internal/status"
)

// Error is a structured sync failure carrying the classification that is
// surfaced on the tenant's status entry. Polling clients use the class to
// distinguish "try again now" (throttled/transient) from "fix
// configuration" (forbidden) from "might still be running" (timeout).
type Error struct {
	Class   status.ErrorClass
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sync %s: %s", e.Class, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Failure converts the error to the status entry representation.
func (e *Error) Failure() *status.Failure {
	return &status.Failure{
		Class:   e.Class,
		Message: e.Message,
		Hint:    e.Hint,
	}
}

// classify maps an arbitrary fetch or store failure to a structured
// Error. Directory errors carry their own classification; anything else
// is transient and safe to retry.
func classify(err error, message string) *Error {
	var dirErr *directory.Error
	if errors.As(err, &dirErr) {
		return &Error{
			Class:   dirErr.Class,
			Message: dirErr.Message,
			Hint:    dirErr.Hint,
			Err:     err,
		}
	}
	return &Error{
		Class:   status.ErrorClassTransient,
		Message: fmt.Sprintf("%s: %v", message, err),
		Err:     err,
	}
}
