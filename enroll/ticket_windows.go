//go:build windows

package enroll

import (
	"context"
	"fmt"

	"github.com/alexbrainman/sspi/negotiate"
)

// NewPlatformTicketProvider creates the ticket provider for the current
// platform. On Windows this uses SSPI with the logged-in user's
// credentials (LSA), giving true single sign-on without a credential
// cache file. TicketConfig fields are ignored; SSPI resolves the realm
// and ticket from the OS.
func NewPlatformTicketProvider(cfg TicketConfig) (TicketProvider, error) {
	return &sspiTicketProvider{}, nil
}

// sspiTicketProvider builds SPNEGO tokens via the Windows Negotiate package.
type sspiTicketProvider struct{}

// Token returns the raw SPNEGO token bytes for the given SPN.
func (p *sspiTicketProvider) Token(ctx context.Context, spn string) ([]byte, error) {
	cred, err := negotiate.AcquireCurrentUserCredentials()
	if err != nil {
		return nil, fmt.Errorf("acquire current user credentials: %w", err)
	}
	defer cred.Release()

	secctx, token, err := negotiate.NewClientContext(cred, spn)
	if err != nil {
		return nil, fmt.Errorf("create client context for %s: %w", spn, err)
	}
	defer secctx.Release()

	return token, nil
}
