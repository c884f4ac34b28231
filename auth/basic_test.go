package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBasic_HeaderDeterministic(t *testing.T) {
	b, err := NewBasic("jdoe", "secret")
	require.NoError(t, err)

	// base64("jdoe:secret")
	want := "Basic amRvZTpzZWNyZXQ="
	assert.Equal(t, want, b.AuthHeaders().Get("Authorization"))

	// Repeated calls return the same precomputed value.
	assert.Equal(t, want, b.AuthHeaders().Get("Authorization"))

	b2, err := NewBasic("jdoe", "secret")
	require.NoError(t, err)
	assert.Equal(t, b.AuthHeaders(), b2.AuthHeaders())
}

func TestNewBasic_RejectsEmptyFields(t *testing.T) {
	_, err := NewBasic("", "secret")
	assert.ErrorContains(t, err, "username")

	_, err = NewBasic("jdoe", "")
	assert.ErrorContains(t, err, "password")
}

func TestBasic_NoCapabilities(t *testing.T) {
	b, err := NewBasic("jdoe", "secret")
	require.NoError(t, err)

	assert.False(t, b.Capabilities().Has(CapLogin))
	assert.False(t, b.Capabilities().Has(CapCookies))
	assert.False(t, b.Capabilities().Has(CapCertificates))
	assert.Equal(t, "jdoe", b.Username())

	result, err := b.Login(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Cookies)
	assert.Nil(t, result.Certs)
}
