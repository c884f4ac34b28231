package auth

import (
	"context"
	"encoding/base64"
	"net/http"
)

// Basic authenticates with static credentials in an Authorization
// header. There is no login step and no cookies.
type Basic struct {
	creds  Credentials
	header string
}

// NewBasic creates a Basic strategy. Fails when either field is empty.
func NewBasic(username, password string) (*Basic, error) {
	creds := Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	// Computed once; deterministic for fixed credentials.
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &Basic{
		creds:  creds,
		header: "Basic " + encoded,
	}, nil
}

// Type returns TypeBasic.
func (b *Basic) Type() Type {
	return TypeBasic
}

// Capabilities returns the empty capability set: headers only.
func (b *Basic) Capabilities() Capability {
	return 0
}

// AuthHeaders returns the precomputed Authorization header.
func (b *Basic) AuthHeaders() http.Header {
	h := http.Header{}
	h.Set("Authorization", b.header)
	return h
}

// Username returns the configured user.
func (b *Basic) Username() string {
	return b.creds.Username
}

// Login is a no-op; Basic has no login step.
func (b *Basic) Login(ctx context.Context) (*LoginResult, error) {
	return &LoginResult{}, nil
}
