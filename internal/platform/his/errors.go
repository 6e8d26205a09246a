package his

import (
	"errors"
	"fmt"
)

// Error is a failed upstream HIS call: either a transport/HTTP failure
// (Status set, Code zero) or a business rejection carried in the response
// envelope (Code set). Both leave local state untouched at the call site.
type Error struct {
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("his: code %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("his: status %d: %s", e.Status, e.Message)
}

// IsUpstream reports whether err originated from the HIS collaborator.
func IsUpstream(err error) bool {
	var he *Error
	return errors.As(err, &he)
}

// StatusOf returns the HTTP status to relay for an upstream error, or 502
// when the failure had no usable status (network error, open breaker).
func StatusOf(err error) int {
	var he *Error
	if errors.As(err, &he) && he.Status >= 400 && he.Status < 500 {
		return he.Status
	}
	return 502
}
