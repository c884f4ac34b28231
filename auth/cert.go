package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	osuser "os/user"
	"strings"
	"sync"
	"time"

	"github.com/smnsjas/go-sapauth/certstore"
	"github.com/smnsjas/go-sapauth/enroll"
)

// CertConfig configures the certificate-enrollment strategy.
type CertConfig struct {
	// EnrollURL is the Secure Login Server base URL (required).
	EnrollURL string

	// Profile is the enrollment profile name.
	Profile string

	// SPN overrides the service principal derived from EnrollURL.
	SPN string

	// ForceReenroll skips the stored-certificate fast path.
	ForceReenroll bool

	// InMemoryOnly keeps enrolled material out of the store.
	InMemoryOnly bool

	// Insecure skips TLS verification towards the enrollment server.
	Insecure bool

	// ExpiryBufferDays is how close to expiry a stored certificate may
	// be before re-enrollment. Defaults to one day.
	ExpiryBufferDays int

	// Timeout bounds each enrollment HTTP call.
	Timeout time.Duration

	// Ticket overrides the platform SSO ticket provider (tests).
	Ticket enroll.TicketProvider

	// TicketConfig configures the default platform provider.
	TicketConfig enroll.TicketConfig

	// NTLM enables the NTLM fallback for the enrollment login.
	NTLM *enroll.NTLMCredentials

	// Store overrides the default per-user certificate store (tests).
	Store *certstore.Store

	// StoreUser names the store entry. Defaults to the platform user.
	StoreUser string
}

// Certificate authenticates via mutual TLS with a client certificate
// from a Secure Login Server. AuthHeaders is always empty: the
// authentication happens at the transport level.
type Certificate struct {
	cfg CertConfig

	mu       sync.Mutex
	material *enroll.Material
}

// NewCertificate creates a Certificate strategy. Fails when the
// enrollment server URL is missing.
func NewCertificate(cfg CertConfig) (*Certificate, error) {
	if cfg.EnrollURL == "" {
		return nil, errors.New("auth: enrollment server URL is required")
	}
	if cfg.ExpiryBufferDays <= 0 {
		cfg.ExpiryBufferDays = certstore.DefaultExpiryBufferDays
	}
	return &Certificate{cfg: cfg}, nil
}

// Type returns TypeCertificate.
func (c *Certificate) Type() Type {
	return TypeCertificate
}

// Capabilities returns CapLogin|CapCertificates.
func (c *Certificate) Capabilities() Capability {
	return CapLogin | CapCertificates
}

// AuthHeaders returns empty headers; auth is transport-level mTLS.
func (c *Certificate) AuthHeaders() http.Header {
	return http.Header{}
}

// Username returns ""; the mechanism carries no username.
func (c *Certificate) Username() string {
	return ""
}

// Certificates returns the current material, or nil before a
// successful Login.
func (c *Certificate) Certificates() *enroll.Material {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.material
}

// Login obtains certificate material: a stored, non-expired
// certificate is reused unless ForceReenroll is set; otherwise the
// enrollment pipeline runs and the result is persisted (unless
// InMemoryOnly).
func (c *Certificate) Login(ctx context.Context) (*LoginResult, error) {
	store, err := c.store()
	if err != nil {
		return nil, err
	}

	if !c.cfg.ForceReenroll && store != nil && store.Exists() {
		material, err := store.Load()
		if err == nil && !store.IsExpired(material.FullChain, c.cfg.ExpiryBufferDays) {
			c.setMaterial(material)
			return &LoginResult{Certs: material}, nil
		}
		// Expired or unreadable: fall through to re-enrollment.
	}

	enrollCfg := enroll.DefaultConfig(c.cfg.EnrollURL)
	enrollCfg.SPN = c.cfg.SPN
	enrollCfg.Insecure = c.cfg.Insecure
	enrollCfg.Ticket = c.cfg.Ticket
	enrollCfg.TicketConfig = c.cfg.TicketConfig
	enrollCfg.NTLM = c.cfg.NTLM
	if c.cfg.Profile != "" {
		enrollCfg.Profile = c.cfg.Profile
	}
	if c.cfg.Timeout > 0 {
		enrollCfg.Timeout = c.cfg.Timeout
	}

	material, err := enroll.Enroll(ctx, enrollCfg)
	if err != nil {
		return nil, err
	}

	if !c.cfg.InMemoryOnly && store != nil {
		if err := store.Save(material); err != nil {
			return nil, fmt.Errorf("auth: persist enrolled certificate: %w", err)
		}
	}

	c.setMaterial(material)
	return &LoginResult{Certs: material}, nil
}

// StorePaths returns the chain and key file paths for out-of-process
// handoff. Paths only; raw key material never crosses the boundary.
func (c *Certificate) StorePaths() (chainPath, keyPath string, err error) {
	if c.cfg.InMemoryOnly {
		return "", "", errors.New("auth: in-memory material has no paths")
	}
	store, err := c.store()
	if err != nil {
		return "", "", err
	}
	chainPath, keyPath = store.Paths()
	return chainPath, keyPath, nil
}

// store resolves the configured or default certificate store.
func (c *Certificate) store() (*certstore.Store, error) {
	if c.cfg.Store != nil {
		return c.cfg.Store, nil
	}
	if c.cfg.InMemoryOnly {
		return nil, nil
	}
	username := c.cfg.StoreUser
	if username == "" {
		u, err := osuser.Current()
		if err != nil {
			return nil, fmt.Errorf("auth: resolve current user for certificate store: %w", err)
		}
		username = u.Username
		if i := strings.LastIndexByte(username, '\\'); i >= 0 {
			username = username[i+1:]
		}
	}
	store, err := certstore.New(username)
	if err != nil {
		return nil, fmt.Errorf("auth: open certificate store: %w", err)
	}
	return store, nil
}

// setMaterial records the active material.
func (c *Certificate) setMaterial(m *enroll.Material) {
	c.mu.Lock()
	c.material = m
	c.mu.Unlock()
}
