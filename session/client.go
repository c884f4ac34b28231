package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smnsjas/go-sapauth/auth"
	saplog "github.com/smnsjas/go-sapauth/internal/log"
	"github.com/smnsjas/go-sapauth/transport"
)

// Server contract constants. The endpoint/content-type pairing per
// auth type is dictated by the remote server, not a design choice.
const (
	// CSRFTokenHeader is the anti-forgery token header name.
	CSRFTokenHeader = "x-csrf-token"

	// csrfFetchValue requests issuance of a fresh token.
	csrfFetchValue = "fetch"

	// csrfInvalidMarker is the server's 403 body marker for a stale token.
	csrfInvalidMarker = "CSRF token validation failed"

	// Token fetch endpoint for basic and certificate sessions.
	tokenPathDefault   = "/sap/bc/adt/compatibility/graph"
	tokenAcceptDefault = "application/xml"

	// Token fetch endpoint for federated browser sessions.
	tokenPathBrowser   = "/sap/bc/adt/core/discovery"
	tokenAcceptBrowser = "application/atomsvc+xml"

	logoffPath     = "/sap/public/bc/icf/logoff"
	reentrancePath = "/sap/bc/adt/security/reentranceticket"

	// sapClientParam is appended to every request URL.
	sapClientParam = "sap-client"
)

// DefaultRefreshInterval is the auto-refresh scheduler tick.
const DefaultRefreshInterval = 30 * time.Minute

// Config holds configuration for a session client.
type Config struct {
	// BaseURL is the server base URL, e.g. https://host.corp.example.com:8007.
	BaseURL string

	// Client is the SAP client number, e.g. "100".
	Client string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification. Intended
	// for systems behind private CAs.
	InsecureSkipVerify bool

	// AutoRefresh starts the background refresh scheduler after login.
	AutoRefresh bool

	// RefreshInterval is the scheduler tick.
	RefreshInterval time.Duration

	// Logger receives structured logs. Defaults to slog.Default().
	// Sensitive attributes are redacted before emission.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         transport.DefaultTimeout,
		AutoRefresh:     true,
		RefreshInterval: DefaultRefreshInterval,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("session: base URL is required")
	}
	if c.Client == "" {
		return errors.New("session: SAP client number is required")
	}
	return nil
}

// Client owns one logical connection's session state.
type Client struct {
	mu sync.Mutex

	id       uuid.UUID
	config   Config
	strategy auth.Strategy

	transport *transport.HTTPTransport
	jar       *transport.Jar
	logger    *slog.Logger
	clock     Clock

	csrfToken string
	session   *Session
	state     State
	certPaths *certPaths

	refresher *refresher
}

// certPaths records where the active mTLS material lives on disk, for
// out-of-process handoff. Paths only.
type certPaths struct {
	chain string
	key   string
}

// New creates a session client for the given strategy.
func New(cfg Config, strategy auth.Strategy) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, errors.New("session: authentication strategy is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = transport.DefaultTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}
	logger := slog.New(saplog.NewRedactingHandler(base.Handler()))

	id := uuid.New()
	c := &Client{
		id:       id,
		config:   cfg,
		strategy: strategy,
		transport: transport.NewHTTPTransport(
			transport.WithTimeout(cfg.Timeout),
			transport.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		),
		jar:    transport.NewJar(),
		logger: logger.With("client_id", id.String()),
		clock:  realClock{},
		state:  StateAnonymous,
	}
	c.refresher = newRefresher(c, cfg.RefreshInterval)
	return c, nil
}

// ID returns the client instance identifier.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the active session, or nil.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// CSRFToken returns the current token, or "".
func (c *Client) CSRFToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfToken
}

// Login authenticates via the strategy and materializes a session.
// A failure before the token fetch leaves the client Anonymous.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		return nil
	}
	c.state = StateAuthenticating
	c.mu.Unlock()

	caps := c.strategy.Capabilities()
	if caps.Has(auth.CapLogin) {
		result, err := c.strategy.Login(ctx)
		if err != nil {
			c.setState(StateAnonymous)
			return fmt.Errorf("session: strategy login: %w", err)
		}
		if caps.Has(auth.CapCookies) {
			c.mu.Lock()
			c.jar.SetAll(result.Cookies)
			c.mu.Unlock()
		}
		if caps.Has(auth.CapCertificates) && result.Certs != nil {
			cert, err := result.Certs.TLSCertificate()
			if err != nil {
				c.setState(StateAnonymous)
				return err
			}
			c.transport.SetClientCertificate(cert)
			c.recordCertPaths()
		}
	}

	token, err := c.fetchCSRFToken(ctx)
	if err != nil {
		c.setState(StateAnonymous)
		return err
	}

	c.mu.Lock()
	c.csrfToken = token
	c.session = &Session{
		ID:        token,
		Username:  c.strategy.Username(),
		ExpiresAt: c.clock.Now().Add(sessionTimeout(c.strategy.Type())),
	}
	c.state = StateActive
	c.mu.Unlock()

	c.logger.Info("session established",
		"strategy", string(c.strategy.Type()),
		"expires_at", c.Session().ExpiresAt)

	if c.config.AutoRefresh {
		c.refresher.start()
	}
	return nil
}

// Logout posts to the log-off endpoint and clears all session state.
// The state is cleared even when the request fails, and a second call
// is a no-op beyond clearing already-empty state.
func (c *Client) Logout(ctx context.Context) error {
	c.refresher.stop()

	c.mu.Lock()
	hadSession := c.session != nil
	header := c.requestHeaderLocked("")
	c.mu.Unlock()

	if hadSession {
		url, err := c.buildURL(logoffPath, nil)
		if err == nil {
			if _, err := c.transport.Do(ctx, http.MethodPost, url, header, nil); err != nil {
				c.logger.Warn("log-off request failed, clearing state anyway", "error", err)
			}
		}
	}

	c.mu.Lock()
	c.csrfToken = ""
	c.session = nil
	c.jar.Clear()
	if c.state != StateAnonymous {
		c.state = StateInvalidated
	}
	c.mu.Unlock()
	return nil
}

// Refresh extends the active session by fetching a reentrance ticket.
// The CSRF token is not rotated.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive || c.session == nil {
		c.mu.Unlock()
		return ErrNotActive
	}
	header := c.requestHeaderLocked("")
	c.mu.Unlock()

	url, err := c.buildURL(reentrancePath, nil)
	if err != nil {
		return err
	}
	resp, err := c.transport.Do(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		return err
	}
	c.captureCookies(resp)
	if !resp.IsSuccess() {
		return &ProtocolError{Op: "reentrance ticket", StatusCode: resp.StatusCode, Msg: string(resp.Body)}
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.ExpiresAt = c.clock.Now().Add(sessionTimeout(c.strategy.Type()))
	}
	c.mu.Unlock()

	c.logger.Debug("session refreshed", "expires_at", c.Session().ExpiresAt)
	return nil
}

// sessionReset recovers from a server-side session loss: best-effort
// logout, then a fresh login. Called by the request executor on a 500.
func (c *Client) sessionReset(ctx context.Context) error {
	c.logger.Warn("server-side session loss detected, resetting session")

	if err := c.Logout(ctx); err != nil {
		c.logger.Warn("logout during reset failed", "error", err)
	}
	// Logout leaves the state Invalidated; Login requires a clean run.
	c.setState(StateAnonymous)
	return c.Login(ctx)
}

// fetchCSRFToken issues the token-fetch GET with the sentinel header
// value and extracts the token from the response headers.
func (c *Client) fetchCSRFToken(ctx context.Context) (string, error) {
	path, accept := tokenPathDefault, tokenAcceptDefault
	if c.strategy.Type() == auth.TypeBrowser {
		path, accept = tokenPathBrowser, tokenAcceptBrowser
	}

	url, err := c.buildURL(path, nil)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	header := c.requestHeaderLocked("")
	c.mu.Unlock()
	header.Set(CSRFTokenHeader, csrfFetchValue)
	header.Set("Accept", accept)

	resp, err := c.transport.Do(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		return "", err
	}
	c.captureCookies(resp)

	token := resp.Header.Get(CSRFTokenHeader)
	if token == "" || token == csrfFetchValue {
		return "", &ProtocolError{
			Op:         "csrf token fetch",
			StatusCode: resp.StatusCode,
			Msg:        "response carried no token header",
		}
	}
	return token, nil
}

// recordCertPaths captures the store paths when the strategy persists
// certificate material.
func (c *Client) recordCertPaths() {
	type pather interface {
		StorePaths() (string, string, error)
	}
	if p, ok := c.strategy.(pather); ok {
		if chain, key, err := p.StorePaths(); err == nil {
			c.mu.Lock()
			c.certPaths = &certPaths{chain: chain, key: key}
			c.mu.Unlock()
		}
	}
}

// setState sets the lifecycle state under the lock.
func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
