package transport

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewHTTPTransport verifies transport creation with default settings.
func TestNewHTTPTransport(t *testing.T) {
	tr := NewHTTPTransport()
	if tr == nil {
		t.Fatal("NewHTTPTransport returned nil")
	}
	if tr.client == nil {
		t.Error("client is nil")
	}
	if tr.client.Timeout != DefaultTimeout {
		t.Errorf("got timeout %v, want %v", tr.client.Timeout, DefaultTimeout)
	}
}

// TestHTTPTransport_WithTimeout verifies timeout configuration.
func TestHTTPTransport_WithTimeout(t *testing.T) {
	timeout := 30 * time.Second
	tr := NewHTTPTransport(WithTimeout(timeout))

	if tr.client.Timeout != timeout {
		t.Errorf("got timeout %v, want %v", tr.client.Timeout, timeout)
	}
}

// TestHTTPTransport_WithInsecureSkipVerify verifies TLS skip verify configuration.
func TestHTTPTransport_WithInsecureSkipVerify(t *testing.T) {
	tr := NewHTTPTransport(WithInsecureSkipVerify(true))

	httpTransport, ok := tr.client.Transport.(*http.Transport)
	if !ok {
		t.Fatal("transport is not *http.Transport")
	}
	if httpTransport.TLSClientConfig == nil {
		t.Fatal("TLSClientConfig is nil")
	}
	if !httpTransport.TLSClientConfig.InsecureSkipVerify {
		t.Error("InsecureSkipVerify is false, want true")
	}
}

// TestHTTPTransport_WithTLSConfig verifies the TLS 1.2 floor is enforced.
func TestHTTPTransport_WithTLSConfig(t *testing.T) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS10,
	}
	tr := NewHTTPTransport(WithTLSConfig(tlsCfg))

	httpTransport, ok := tr.client.Transport.(*http.Transport)
	if !ok {
		t.Fatal("transport is not *http.Transport")
	}
	if httpTransport.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("got MinVersion %d, want TLS 1.2", httpTransport.TLSClientConfig.MinVersion)
	}
}

// TestHTTPTransport_WithClientCertificate verifies mTLS material is installed.
func TestHTTPTransport_WithClientCertificate(t *testing.T) {
	cert := tls.Certificate{Certificate: [][]byte{{0x30}}}
	tr := NewHTTPTransport(WithClientCertificate(cert))

	cfg := tr.ensureTLSConfig()
	if len(cfg.Certificates) != 1 {
		t.Fatalf("got %d certificates, want 1", len(cfg.Certificates))
	}
}

// TestHTTPTransport_Do verifies basic request execution and header passing.
func TestHTTPTransport_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Csrf-Token"); got != "fetch" {
			t.Errorf("unexpected x-csrf-token header: %q", got)
		}
		w.Header().Set("X-Csrf-Token", "abc123")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	header := http.Header{}
	header.Set("x-csrf-token", "fetch")

	resp, err := tr.Do(context.Background(), http.MethodGet, server.URL, header, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("got body %q, want %q", resp.Body, "hello")
	}
	if got := resp.Header.Get("x-csrf-token"); got != "abc123" {
		t.Errorf("got token header %q, want %q", got, "abc123")
	}
}

// TestHTTPTransport_Do_ErrorStatus verifies non-2xx responses are returned, not errors.
func TestHTTPTransport_Do_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	resp, err := tr.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", resp.StatusCode)
	}
}

// TestHTTPTransport_Do_NetworkError verifies connection failures produce NetworkError.
func TestHTTPTransport_Do_NetworkError(t *testing.T) {
	tr := NewHTTPTransport(WithTimeout(2 * time.Second))

	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := tr.Do(context.Background(), http.MethodGet, url, nil, nil)
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if !IsNetworkError(err) {
		t.Errorf("expected NetworkError, got %T: %v", err, err)
	}
}

// TestHTTPTransport_Do_NoRedirectFollow verifies redirects are returned as-is.
func TestHTTPTransport_Do_NoRedirectFollow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	resp, err := tr.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("got status %d, want 302", resp.StatusCode)
	}
}
