//go:build !windows

package enroll

import (
	"context"
	"fmt"
	"os"

	"github.com/go-krb5/krb5/client"
	"github.com/go-krb5/krb5/config"
	"github.com/go-krb5/krb5/credentials"
	"github.com/go-krb5/krb5/spnego"
)

// NewPlatformTicketProvider creates the ticket provider for the current
// platform. On non-Windows it reads the Kerberos credential cache
// created by kinit; the caller must already hold a TGT.
func NewPlatformTicketProvider(cfg TicketConfig) (TicketProvider, error) {
	confPath := cfg.Krb5ConfPath
	if confPath == "" {
		confPath = os.Getenv("KRB5_CONFIG")
		if confPath == "" {
			confPath = "/etc/krb5.conf"
		}
	}
	conf, err := config.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("enroll: load krb5.conf from %s: %w", confPath, err)
	}

	ccPath := cfg.CCachePath
	if ccPath == "" {
		ccPath = os.Getenv("KRB5CCNAME")
		if ccPath == "" {
			ccPath = fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
		}
	}
	cc, err := credentials.LoadCCache(ccPath)
	if err != nil {
		return nil, fmt.Errorf("enroll: load ccache from %s (run kinit?): %w", ccPath, err)
	}

	cl, err := client.NewFromCCache(cc, conf, client.DisablePAFXFAST(true))
	if err != nil {
		return nil, fmt.Errorf("enroll: create kerberos client from ccache: %w", err)
	}

	return &ccacheTicketProvider{client: cl}, nil
}

// ccacheTicketProvider builds SPNEGO tokens from a kinit credential cache.
type ccacheTicketProvider struct {
	client *client.Client
}

// Token returns the raw SPNEGO token bytes for the given SPN.
func (p *ccacheTicketProvider) Token(ctx context.Context, spn string) ([]byte, error) {
	if err := p.client.Login(); err != nil {
		return nil, fmt.Errorf("kerberos login: %w", err)
	}

	spnegoClient := spnego.SPNEGOClient(p.client, spn)
	tkn, err := spnegoClient.InitSecContext()
	if err != nil {
		return nil, fmt.Errorf("init security context: %w", err)
	}
	token, err := tkn.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal token: %w", err)
	}
	return token, nil
}
