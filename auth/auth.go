package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/smnsjas/go-sapauth/enroll"
	"github.com/smnsjas/go-sapauth/transport"
)

// Type identifies the authentication mechanism.
type Type string

const (
	// TypeBasic is static username/password credentials.
	TypeBasic Type = "basic"
	// TypeBrowser is federated browser (SAML) login.
	TypeBrowser Type = "browser"
	// TypeCertificate is certificate-based mutual TLS.
	TypeCertificate Type = "certificate"
)

// Capability describes what a strategy can do. Dispatch checks the
// capability set explicitly instead of probing for optional methods.
type Capability uint8

const (
	// CapLogin means the strategy has a login step to run before the
	// session can be established.
	CapLogin Capability = 1 << iota
	// CapCookies means login produces session cookies.
	CapCookies
	// CapCertificates means login produces mTLS client material.
	CapCertificates
)

// Has reports whether c includes want.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// LoginResult is what a login-capable strategy produced.
type LoginResult struct {
	// Cookies from a browser flow, to be merged into the session jar.
	Cookies []transport.Cookie

	// Certs from an enrollment flow, to be installed on the transport.
	Certs *enroll.Material
}

// Strategy is a pluggable authentication mechanism.
type Strategy interface {
	// Type returns the mechanism identifier.
	Type() Type

	// Capabilities returns the strategy's capability set.
	Capabilities() Capability

	// AuthHeaders returns headers to attach to every request. Empty
	// for strategies whose authentication rides on cookies or TLS.
	AuthHeaders() http.Header

	// Username returns the authenticated user, or "" when the
	// mechanism has no notion of one (certificate enrollment).
	Username() string

	// Login runs the strategy's login step. Only called when the
	// capability set includes CapLogin.
	Login(ctx context.Context) (*LoginResult, error)
}

// Credentials holds username/password credentials.
type Credentials struct {
	Username string
	Password string
}

// Validate checks that required credential fields are populated.
func (c *Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("auth: username is required")
	}
	if c.Password == "" {
		return errors.New("auth: password is required")
	}
	return nil
}
