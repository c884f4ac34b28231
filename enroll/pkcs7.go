package enroll

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"

	"github.com/smallstep/pkcs7"
)

// DecodeSignedData decodes a base64 PKCS#7 signed-data envelope into
// the leaf certificate followed by the CA chain, each re-encoded as
// PEM. The server embeds line breaks in the base64 body; they are
// stripped before decoding.
func DecodeSignedData(body string) (fullChain string, err error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, body)

	if compact == "" {
		return "", &CertificateError{Reason: "empty signed-data response"}
	}

	der, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return "", &CertificateError{Reason: "invalid base64 in signed-data response", Err: err}
	}

	p7, err := pkcs7.Parse(der)
	if err != nil {
		return "", &CertificateError{Reason: "malformed signed-data envelope", Err: err}
	}
	if len(p7.Certificates) == 0 {
		return "", &CertificateError{Reason: "signed-data envelope contains no certificates"}
	}

	// First entry is the issued leaf, the rest is the CA chain.
	var b strings.Builder
	for _, cert := range p7.Certificates {
		b.Write(encodeCertPEM(cert))
	}
	return b.String(), nil
}

// encodeCertPEM renders a single certificate as a PEM block.
func encodeCertPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	})
}
