package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-sapauth/auth"
)

// fakeServer simulates the SAP endpoints the session layer talks to.
type fakeServer struct {
	*httptest.Server

	tokenValue   atomic.Value // string
	tokenFetches atomic.Int64
	logoffs      atomic.Int64
	reentrances  atomic.Int64

	// handler for everything that is not a contract endpoint
	appHandler http.HandlerFunc
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.tokenValue.Store("token-1")

	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sap-client") != "100" {
			t.Errorf("missing sap-client parameter on %s", r.URL)
		}
		switch r.URL.Path {
		case tokenPathDefault, tokenPathBrowser:
			fs.tokenFetches.Add(1)
			if got := r.Header.Get(CSRFTokenHeader); got != csrfFetchValue {
				t.Errorf("token fetch sent %q, want %q", got, csrfFetchValue)
			}
			w.Header().Set(CSRFTokenHeader, fs.tokenValue.Load().(string))
			w.WriteHeader(http.StatusOK)
		case logoffPath:
			fs.logoffs.Add(1)
			w.WriteHeader(http.StatusOK)
		case reentrancePath:
			fs.reentrances.Add(1)
			w.Write([]byte("reentrance-ticket"))
		default:
			if fs.appHandler != nil {
				fs.appHandler(w, r)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(fs.Server.Close)
	return fs
}

func (fs *fakeServer) config() Config {
	cfg := DefaultConfig()
	cfg.BaseURL = fs.URL
	cfg.Client = "100"
	cfg.AutoRefresh = false
	return cfg
}

func basicClient(t *testing.T, fs *fakeServer) *Client {
	t.Helper()
	strategy, err := auth.NewBasic("jdoe", "secret")
	require.NoError(t, err)
	c, err := New(fs.config(), strategy)
	require.NoError(t, err)
	return c
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "missing base URL must fail")

	cfg.BaseURL = "https://host:8007"
	assert.Error(t, cfg.Validate(), "missing client number must fail")

	cfg.Client = "100"
	assert.NoError(t, cfg.Validate())
}

func TestNew_RequiresStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://host:8007"
	cfg.Client = "100"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestLogin_Basic(t *testing.T) {
	fs := newFakeServer(t)
	c := basicClient(t, fs)

	assert.Equal(t, StateAnonymous, c.State())
	assert.Nil(t, c.Session())

	require.NoError(t, c.Login(context.Background()))

	assert.Equal(t, StateActive, c.State())
	sess := c.Session()
	require.NotNil(t, sess)
	assert.Equal(t, "token-1", sess.ID)
	assert.Equal(t, "jdoe", sess.Username)
	assert.Equal(t, "token-1", c.CSRFToken())
	assert.Equal(t, int64(1), fs.tokenFetches.Load())

	// Second login is a no-op.
	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, int64(1), fs.tokenFetches.Load())
}

func TestLogin_NoTokenHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // no token header
	}))
	defer server.Close()

	strategy, err := auth.NewBasic("jdoe", "secret")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Client = "100"
	cfg.AutoRefresh = false
	c, err := New(cfg, strategy)
	require.NoError(t, err)

	err = c.Login(context.Background())
	require.Error(t, err)

	var pe *ProtocolError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, StateAnonymous, c.State(), "failed login must leave the client anonymous")
}

func TestLogin_StrategyFailureStaysAnonymous(t *testing.T) {
	fs := newFakeServer(t)

	strategy, err := auth.NewCertificate(auth.CertConfig{
		EnrollURL:    "https://unreachable.invalid",
		InMemoryOnly: true,
		Ticket:       failingTicket{},
	})
	require.NoError(t, err)

	c, err := New(fs.config(), strategy)
	require.NoError(t, err)

	err = c.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateAnonymous, c.State())
	assert.Equal(t, int64(0), fs.tokenFetches.Load(), "token fetch must not run after strategy failure")
}

func TestLogout_ClearsStateAndIsIdempotent(t *testing.T) {
	fs := newFakeServer(t)
	c := basicClient(t, fs)

	require.NoError(t, c.Login(context.Background()))
	require.NoError(t, c.Logout(context.Background()))

	assert.Equal(t, StateInvalidated, c.State())
	assert.Nil(t, c.Session())
	assert.Empty(t, c.CSRFToken())
	assert.Equal(t, int64(1), fs.logoffs.Load())

	// Second logout: no-op, no error, no second log-off call.
	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, int64(1), fs.logoffs.Load())
}

func TestRefresh_ExtendsExpiry(t *testing.T) {
	fs := newFakeServer(t)
	c := basicClient(t, fs)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clk := newMockClock(start)
	c.clock = clk

	require.NoError(t, c.Login(context.Background()))
	first := c.Session().ExpiresAt
	assert.Equal(t, start.Add(defaultSessionTimeout), first)

	token := c.CSRFToken()

	clk.Advance(time.Hour)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, int64(1), fs.reentrances.Load())
	assert.Equal(t, first.Add(time.Hour), c.Session().ExpiresAt)
	assert.Equal(t, token, c.CSRFToken(), "refresh must not rotate the CSRF token")
}

func TestRefresh_RequiresActiveSession(t *testing.T) {
	fs := newFakeServer(t)
	c := basicClient(t, fs)

	assert.ErrorIs(t, c.Refresh(context.Background()), ErrNotActive)
}

// failingTicket always fails the ticket exchange.
type failingTicket struct{}

func (failingTicket) Token(ctx context.Context, spn string) ([]byte, error) {
	return nil, assert.AnError
}

func TestSessionTimeoutByType(t *testing.T) {
	assert.Equal(t, browserSessionTimeout, sessionTimeout(auth.TypeBrowser))
	assert.Equal(t, defaultSessionTimeout, sessionTimeout(auth.TypeBasic))
	assert.Equal(t, defaultSessionTimeout, sessionTimeout(auth.TypeCertificate))
}
