// Package precond marks errors raised by local precondition checks: missing
// identifiers, empty required fields, duplicate cart entries. A precondition
// failure means no network call was made and no local state changed; the
// message is meant for the user, not the operator.
package precond

import (
	"errors"
	"fmt"
)

type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

// Failf builds a precondition error with a user-facing message.
func Failf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// IsFailure reports whether err (or anything it wraps) is a precondition error.
func IsFailure(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
