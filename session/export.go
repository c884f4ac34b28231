package session

import (
	"errors"
	"fmt"
	"os"

	"github.com/smnsjas/go-sapauth/auth"
	"github.com/smnsjas/go-sapauth/enroll"
	"github.com/smnsjas/go-sapauth/transport"
)

// Snapshot transfers an authenticated session to another process
// without re-authenticating. Certificate-based sessions carry file
// paths only; raw key material never crosses the process boundary.
type Snapshot struct {
	ClientID      string             `json:"clientId"`
	AuthType      auth.Type          `json:"authType"`
	CSRFToken     string             `json:"csrfToken"`
	Session       Session            `json:"session"`
	Cookies       []transport.Cookie `json:"cookies"`
	CertChainPath string             `json:"certChainPath,omitempty"`
	CertKeyPath   string             `json:"certKeyPath,omitempty"`
}

// Export snapshots the session state. It fails unless both the session
// and the CSRF token exist, i.e. login has completed.
func (c *Client) Export() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.csrfToken == "" {
		return nil, ErrNotExportable
	}

	snap := &Snapshot{
		ClientID:  c.id.String(),
		AuthType:  c.strategy.Type(),
		CSRFToken: c.csrfToken,
		Session:   *c.session,
		Cookies:   c.jar.Cookies(),
	}
	if c.certPaths != nil {
		snap.CertChainPath = c.certPaths.chain
		snap.CertKeyPath = c.certPaths.key
	}
	return snap, nil
}

// Import restores a snapshot into this client, reproducing an active
// session without a network call. The client's strategy must match the
// snapshot's auth type. Certificate material is loaded from the
// snapshot's paths for mutual TLS.
func (c *Client) Import(snap *Snapshot) error {
	if snap == nil {
		return errors.New("session: nil snapshot")
	}
	if snap.AuthType != c.strategy.Type() {
		return fmt.Errorf("session: snapshot auth type %q does not match strategy %q",
			snap.AuthType, c.strategy.Type())
	}
	if snap.CSRFToken == "" || snap.Session.ID == "" {
		return errors.New("session: snapshot is incomplete")
	}

	if snap.CertChainPath != "" && snap.CertKeyPath != "" {
		chain, err := os.ReadFile(snap.CertChainPath)
		if err != nil {
			return fmt.Errorf("session: read snapshot chain: %w", err)
		}
		key, err := os.ReadFile(snap.CertKeyPath)
		if err != nil {
			return fmt.Errorf("session: read snapshot key: %w", err)
		}
		m := enroll.Material{FullChain: string(chain), PrivateKey: string(key)}
		cert, err := m.TLSCertificate()
		if err != nil {
			return err
		}
		c.transport.SetClientCertificate(cert)
	}

	c.mu.Lock()
	c.csrfToken = snap.CSRFToken
	sess := snap.Session
	c.session = &sess
	c.jar.Clear()
	c.jar.SetAll(snap.Cookies)
	if snap.CertChainPath != "" {
		c.certPaths = &certPaths{chain: snap.CertChainPath, key: snap.CertKeyPath}
	}
	c.state = StateActive
	c.mu.Unlock()

	if c.config.AutoRefresh {
		c.refresher.start()
	}
	return nil
}
