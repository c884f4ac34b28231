package enroll

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// TicketProvider produces a SPNEGO negotiation token for a target
// service principal using the caller's existing platform identity.
// No credentials are supplied explicitly.
//
// Implementations are NOT safe for concurrent use; enrollment is a
// rare, serialized event.
type TicketProvider interface {
	// Token returns the raw SPNEGO token bytes for the given SPN.
	Token(ctx context.Context, spn string) ([]byte, error)
}

// TicketConfig configures the platform ticket provider.
type TicketConfig struct {
	// Realm is the Kerberos realm. Resolved from krb5.conf when empty.
	Realm string

	// Krb5ConfPath is the path to krb5.conf. Defaults to $KRB5_CONFIG,
	// then /etc/krb5.conf. Ignored on Windows.
	Krb5ConfPath string

	// CCachePath is the path to the credential cache produced by kinit.
	// Defaults to $KRB5CCNAME, then /tmp/krb5cc_<uid>. Ignored on
	// Windows, where the SSPI context of the logged-in user is used.
	CCachePath string
}

// SPNFromURL derives the HTTP service principal name from the
// enrollment server URL, e.g. https://sls.corp.example.com:8443/... ->
// HTTP/sls.corp.example.com.
func SPNFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("enroll: parse enrollment URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("enroll: enrollment URL %q has no host", rawURL)
	}
	return "HTTP/" + strings.ToLower(host), nil
}
