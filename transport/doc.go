// Package transport handles HTTP/HTTPS communication with an SAP server.
//
// It wraps *http.Client with the TLS settings this engine needs (minimum
// TLS 1.2, optional client certificate for mTLS, optional verification
// skip for private CAs) and provides the cookie primitives used by the
// session layer: SAP systems return multiple Set-Cookie values folded
// into a single header line, which the stdlib cookie parser does not
// split correctly, so ParseSetCookie implements the splitting here.
package transport
