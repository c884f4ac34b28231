package enroll

import (
	"errors"
	"fmt"
)

// TicketExchangeError indicates the platform SSO mechanism was
// unavailable or rejected the request. This is terminal: it points at
// an environment problem (no ticket cache, wrong realm, clock skew),
// not a transient fault, and is never retried.
type TicketExchangeError struct {
	SPN string
	Err error
}

// Error implements the error interface.
func (e *TicketExchangeError) Error() string {
	return fmt.Sprintf("enroll: ticket exchange for %s failed: %v", e.SPN, e.Err)
}

// Unwrap returns the underlying error.
func (e *TicketExchangeError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response from the enrollment server. The body
// is carried so environment misconfiguration can be diagnosed.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("enroll: %s returned HTTP %d: %s", e.URL, e.StatusCode, body)
}

// CertificateError indicates the signed-data envelope could not be
// decoded or contained no certificates. Distinct from network errors.
type CertificateError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *CertificateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enroll: %s: %v", e.Reason, e.Err)
	}
	return "enroll: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *CertificateError) Unwrap() error {
	return e.Err
}

// IsTicketExchangeError reports whether err is a ticket exchange failure.
func IsTicketExchangeError(err error) bool {
	var te *TicketExchangeError
	return errors.As(err, &te)
}

// IsCertificateError reports whether err is an envelope decode failure.
func IsCertificateError(err error) bool {
	var ce *CertificateError
	return errors.As(err, &ce)
}
