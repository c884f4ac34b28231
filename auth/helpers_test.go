package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smallstep/pkcs7"
	"github.com/stretchr/testify/require"
)

// validChainPEM builds a single self-signed certificate PEM expiring at
// notAfter, shaped like a decoded enrollment chain.
func validChainPEM(t *testing.T, notAfter time.Time) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "jdoe"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

// serveEnroll answers both enrollment endpoints, issuing an envelope
// that decodes back to chainPEM.
func serveEnroll(t *testing.T, w http.ResponseWriter, r *http.Request, chainPEM string) {
	t.Helper()

	if strings.Contains(r.URL.Path, "login") {
		w.Header().Set("Set-Cookie", "slsession=x; path=/")
		w.Write([]byte(`{"keyLength": 2048}`))
		return
	}

	var raw []byte
	rest := []byte(chainPEM)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		raw = append(raw, block.Bytes...)
	}
	envelope, err := pkcs7.DegenerateCertificate(raw)
	require.NoError(t, err)
	w.Write([]byte(base64.StdEncoding.EncodeToString(envelope)))
}

// newEnrollServer starts a server issuing chainPEM for any enrollment.
func newEnrollServer(t *testing.T, chainPEM string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveEnroll(t, w, r, chainPEM)
	}))
}
