package session

import (
	"errors"
	"fmt"
)

// ErrNotActive is returned by operations that require an established
// session.
var ErrNotActive = errors.New("session: no active session")

// ErrNotExportable is returned by Export before a successful login.
var ErrNotExportable = errors.New("session: state not exportable (login has not completed)")

// ErrMissingCSRFToken is returned when a mutating request is attempted
// without a CSRF token.
var ErrMissingCSRFToken = errors.New("session: CSRF token required for mutating request (login first)")

// ProtocolError is an unexpected status or body shape from the server,
// e.g. a token fetch that returned no token header.
type ProtocolError struct {
	Op         string
	StatusCode int
	Msg        string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("session: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Msg)
}

// ResetError wraps a failed session reset. The triggering 500 response
// is still returned alongside it; the reset failure is the harder
// error because the client is now unauthenticated.
type ResetError struct {
	Err error
}

// Error implements the error interface.
func (e *ResetError) Error() string {
	return fmt.Sprintf("session: reset after server-side session loss failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ResetError) Unwrap() error {
	return e.Err
}

// IsResetError reports whether err is a failed session reset.
func IsResetError(err error) bool {
	var re *ResetError
	return errors.As(err, &re)
}
