package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/smnsjas/go-sapauth/transport"
)

// Browser selector and behavior defaults. Identity providers vary, so
// all of these can be overridden through BrowserOption.
const (
	DefaultUserSelector   = `input[name="username"]`
	DefaultPassSelector   = `input[name="password"]`
	DefaultSubmitSelector = `button[type="submit"]`
	DefaultLoginPath      = "/sap/bc/gui/sap/its/webgui"
	DefaultSettleWait     = 3 * time.Second
	DefaultBrowserTimeout = 90 * time.Second
)

// ErrNoCookies is returned when the login flow completes without the
// identity provider setting any cookies. This is a login failure, not
// a success with an empty jar.
var ErrNoCookies = errors.New("auth: browser login produced no cookies")

// Browser performs federated (SAML) login by driving a headless
// browser through the identity provider's credential form and
// extracting the resulting cookie jar. Authentication then rides
// entirely on those cookies; AuthHeaders is empty.
type Browser struct {
	creds   Credentials
	baseURL string

	userSelector   string
	passSelector   string
	submitSelector string
	loginPath      string
	settleWait     time.Duration
	timeout        time.Duration
	headless       bool
	ignoreTLS      bool
}

// BrowserOption overrides a selector or behavior default.
type BrowserOption func(*Browser)

// WithSelectors overrides the credential form CSS selectors.
func WithSelectors(user, pass, submit string) BrowserOption {
	return func(b *Browser) {
		if user != "" {
			b.userSelector = user
		}
		if pass != "" {
			b.passSelector = pass
		}
		if submit != "" {
			b.submitSelector = submit
		}
	}
}

// WithLoginPath overrides the path of the login page on the target.
func WithLoginPath(path string) BrowserOption {
	return func(b *Browser) { b.loginPath = path }
}

// WithSettleWait overrides how long to wait for redirects to settle
// after submitting the form.
func WithSettleWait(d time.Duration) BrowserOption {
	return func(b *Browser) { b.settleWait = d }
}

// WithBrowserTimeout bounds the whole browser flow.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *Browser) { b.timeout = d }
}

// WithHeadful runs a visible browser window, useful when the identity
// provider requires interactive MFA.
func WithHeadful() BrowserOption {
	return func(b *Browser) { b.headless = false }
}

// WithIgnoreTLSErrors makes the browser accept untrusted certificates.
func WithIgnoreTLSErrors() BrowserOption {
	return func(b *Browser) { b.ignoreTLS = true }
}

// NewBrowser creates a Browser strategy. Fails when credentials or the
// target base URL are missing.
func NewBrowser(username, password, baseURL string, opts ...BrowserOption) (*Browser, error) {
	creds := Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if baseURL == "" {
		return nil, errors.New("auth: base URL is required for browser login")
	}

	b := &Browser{
		creds:          creds,
		baseURL:        strings.TrimRight(baseURL, "/"),
		userSelector:   DefaultUserSelector,
		passSelector:   DefaultPassSelector,
		submitSelector: DefaultSubmitSelector,
		loginPath:      DefaultLoginPath,
		settleWait:     DefaultSettleWait,
		timeout:        DefaultBrowserTimeout,
		headless:       true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Type returns TypeBrowser.
func (b *Browser) Type() Type {
	return TypeBrowser
}

// Capabilities returns CapLogin|CapCookies.
func (b *Browser) Capabilities() Capability {
	return CapLogin | CapCookies
}

// AuthHeaders returns empty headers; auth rides on cookies.
func (b *Browser) AuthHeaders() http.Header {
	return http.Header{}
}

// Username returns the configured user.
func (b *Browser) Username() string {
	return b.creds.Username
}

// Login drives the browser through the identity provider's form and
// returns the extracted cookies.
func (b *Browser) Login(ctx context.Context) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
	)
	if b.ignoreTLS {
		allocOpts = append(allocOpts, chromedp.IgnoreCertErrors)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	loginURL := b.baseURL + b.loginPath

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return nil, fmt.Errorf("auth: browser navigation to %s failed: %w", loginURL, err)
	}

	if err := chromedp.Run(browserCtx,
		chromedp.WaitVisible(b.userSelector, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("auth: login form %q never appeared: %w", b.userSelector, err)
	}

	var cookies []transport.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.SendKeys(b.userSelector, b.creds.Username, chromedp.ByQuery),
		chromedp.SendKeys(b.passSelector, b.creds.Password, chromedp.ByQuery),
		chromedp.Click(b.submitSelector, chromedp.ByQuery),
		// Let the IdP redirect dance settle before reading cookies.
		chromedp.Sleep(b.settleWait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			browserCookies, err := storage.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			for _, c := range browserCookies {
				cookies = append(cookies, transport.Cookie{
					Name:   c.Name,
					Value:  c.Value,
					Domain: c.Domain,
					Path:   c.Path,
				})
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: browser login flow failed: %w", err)
	}

	if len(cookies) == 0 {
		return nil, ErrNoCookies
	}

	return &LoginResult{Cookies: cookies}, nil
}
