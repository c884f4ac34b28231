package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapability_Has(t *testing.T) {
	caps := CapLogin | CapCookies
	assert.True(t, caps.Has(CapLogin))
	assert.True(t, caps.Has(CapCookies))
	assert.True(t, caps.Has(CapLogin|CapCookies))
	assert.False(t, caps.Has(CapCertificates))
	assert.False(t, caps.Has(CapLogin|CapCertificates))
}

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{name: "valid", creds: Credentials{Username: "jdoe", Password: "secret"}},
		{name: "missing username", creds: Credentials{Password: "secret"}, wantErr: true},
		{name: "missing password", creds: Credentials{Username: "jdoe"}, wantErr: true},
		{name: "both missing", creds: Credentials{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStrategyTypes(t *testing.T) {
	basic, err := NewBasic("jdoe", "secret")
	require.NoError(t, err)
	assert.Equal(t, TypeBasic, basic.Type())

	browser, err := NewBrowser("jdoe", "secret", "https://host.example.com")
	require.NoError(t, err)
	assert.Equal(t, TypeBrowser, browser.Type())
	assert.True(t, browser.Capabilities().Has(CapLogin|CapCookies))
	assert.Empty(t, browser.AuthHeaders())

	cert, err := NewCertificate(CertConfig{EnrollURL: "https://sls.example.com"})
	require.NoError(t, err)
	assert.Equal(t, TypeCertificate, cert.Type())
	assert.True(t, cert.Capabilities().Has(CapLogin|CapCertificates))
	assert.Empty(t, cert.AuthHeaders())
	assert.Empty(t, cert.Username())
}
