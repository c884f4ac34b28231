// Package session implements the SAP session lifecycle and the
// CSRF-aware request executor.
//
// A Client owns exactly one logical connection's state: the CSRF
// token, the session record, the cookie jar and the authentication
// strategy. Login obtains credentials, cookies or mTLS material from
// the strategy, fetches a CSRF token and materializes the session;
// Request is then the sole path to the network and transparently
// recovers from CSRF token invalidation (one retry) and server-side
// session loss (one logout+login cycle).
//
// Multiple independent Clients may run concurrently; a single Client
// serializes its state mutations behind a mutex, and the background
// auto-refresh scheduler deliberately tolerates last-write-wins on the
// token and expiry, since refresh only extends expiry and a concurrent
// token refresh only replaces the token.
package session
