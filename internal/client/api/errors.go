package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers the whole connection-error class: transport
	// failures, timeouts, and responses that are not valid JSON.
	ErrUnavailable = errors.New("server unavailable")
)

// Error is a business error reported by the backend (its `error` or
// `detail` field). The message is surfaced to the user verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AsServerError unwraps err into an *Error when the backend reported a
// business error, as opposed to a connection failure.
func AsServerError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}
