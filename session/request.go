package session

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/smnsjas/go-sapauth/transport"
)

// Options describes one request against the server.
type Options struct {
	// Method defaults to GET.
	Method string

	// Path is the absolute path on the server, e.g. /sap/bc/adt/....
	Path string

	// Query parameters; the SAP client number is always appended.
	Query url.Values

	// Header entries are added after the strategy's auth headers and
	// may override them.
	Header http.Header

	// Body is the request body for mutating methods.
	Body []byte
}

// Request executes one request with CSRF and session recovery:
//
//   - a 403 whose body carries the server's CSRF-invalid marker causes
//     one token refetch and one retry; the retry's response is returned
//     even if it fails the same way
//   - a 500 triggers a best-effort session reset; the original 500
//     response is returned unchanged, together with a *ResetError when
//     the reset itself failed
//   - transport-level failures return a *transport.NetworkError and
//     are never retried here
func (c *Client) Request(ctx context.Context, opts Options) (*transport.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	c.mu.Lock()
	token := c.csrfToken
	c.mu.Unlock()
	if token == "" && isMutating(method) {
		return nil, ErrMissingCSRFToken
	}

	resp, err := c.send(ctx, method, opts, token)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusForbidden && strings.Contains(string(resp.Body), csrfInvalidMarker):
		c.logger.Debug("stale CSRF token, refetching", "path", opts.Path)
		fresh, err := c.fetchCSRFToken(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.csrfToken = fresh
		c.mu.Unlock()
		// Exactly one retry; its response is final either way.
		return c.send(ctx, method, opts, fresh)

	case resp.StatusCode == http.StatusInternalServerError:
		if err := c.sessionReset(ctx); err != nil {
			return resp, &ResetError{Err: err}
		}
		return resp, nil
	}

	return resp, nil
}

// send assembles headers and URL and performs a single exchange,
// capturing any cookies the server set.
func (c *Client) send(ctx context.Context, method string, opts Options, token string) (*transport.Response, error) {
	target, err := c.buildURL(opts.Path, opts.Query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	header := c.requestHeaderLocked(token)
	c.mu.Unlock()
	for name, values := range opts.Header {
		header.Del(name)
		for _, v := range values {
			header.Add(name, v)
		}
	}

	resp, err := c.transport.Do(ctx, method, target, header, opts.Body)
	if err != nil {
		return nil, err
	}
	c.captureCookies(resp)
	return resp, nil
}

// requestHeaderLocked assembles strategy auth headers, the CSRF token
// and the cookie jar. Caller holds c.mu.
func (c *Client) requestHeaderLocked(token string) http.Header {
	header := http.Header{}
	for name, values := range c.strategy.AuthHeaders() {
		for _, v := range values {
			header.Add(name, v)
		}
	}
	if token == "" {
		token = c.csrfToken
	}
	if token != "" {
		header.Set(CSRFTokenHeader, token)
	}
	if cookie := c.jar.Header(); cookie != "" {
		header.Set("Cookie", cookie)
	}
	return header
}

// captureCookies merges Set-Cookie entries into the jar, overwriting
// by name.
func (c *Client) captureCookies(resp *transport.Response) {
	cookies := transport.ParseSetCookie(resp.Header.Values("Set-Cookie"))
	if len(cookies) == 0 {
		return
	}
	c.mu.Lock()
	c.jar.SetAll(cookies)
	c.mu.Unlock()
}

// buildURL joins base URL, path and query, always appending the SAP
// client number.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", &ProtocolError{Op: "build url", Msg: "invalid base URL: " + err.Error()}
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")

	q := u.Query()
	for name, values := range query {
		for _, v := range values {
			q.Add(name, v)
		}
	}
	q.Set(sapClientParam, c.config.Client)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// isMutating reports whether the method requires a CSRF token.
func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
