package session

import (
	"time"

	"github.com/smnsjas/go-sapauth/auth"
)

// State is the lifecycle state of a client's session.
type State int

const (
	// StateAnonymous means no login has completed.
	StateAnonymous State = iota
	// StateAuthenticating means a login is in flight.
	StateAuthenticating
	// StateActive means a session is established.
	StateActive
	// StateInvalidated means the session was logged out or reset.
	StateInvalidated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Session is an established server session. Created only by a
// successful login; its expiry is extended by refresh; destroyed by
// logout or reset.
type Session struct {
	ID        string    `json:"sessionId"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const (
	// browserSessionTimeout reflects the shorter session policy of a
	// typical identity provider behind federated login.
	browserSessionTimeout = 30 * time.Minute

	// defaultSessionTimeout is the server session policy for basic and
	// certificate authenticated sessions.
	defaultSessionTimeout = 3 * time.Hour
)

// sessionTimeout returns the session lifetime for an auth type.
func sessionTimeout(t auth.Type) time.Duration {
	if t == auth.TypeBrowser {
		return browserSessionTimeout
	}
	return defaultSessionTimeout
}
