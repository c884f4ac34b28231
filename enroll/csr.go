package enroll

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
)

const (
	// DefaultKeyBits is the RSA key size used when the server does not
	// advertise a preference.
	DefaultKeyBits = 2048

	// minKeyBits is the floor for server-advertised key sizes.
	minKeyBits = 2048
)

var (
	oidExtensionKeyUsage    = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidExtensionExtKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37}
	oidExtKeyUsageClientAuth = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
)

// GenerateKey generates the RSA keypair for enrollment. A size below
// the 2048-bit floor is raised to the floor.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	if bits < minKeyBits {
		bits = minKeyBits
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("enroll: generate RSA key: %w", err)
	}
	return key, nil
}

// BuildCSR creates a DER-encoded PKCS#10 certificate signing request
// for the given subject common name, signed with SHA-256. Key usage is
// digitalSignature+keyEncipherment with extended key usage clientAuth,
// matching what the login server issues for client certificates.
func BuildCSR(key *rsa.PrivateKey, commonName string) ([]byte, error) {
	if commonName == "" {
		return nil, fmt.Errorf("enroll: subject common name is required")
	}

	keyUsageExt, err := keyUsageExtension()
	if err != nil {
		return nil, err
	}
	extKeyUsageExt, err := extKeyUsageExtension()
	if err != nil {
		return nil, err
	}

	tmpl := &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: commonName},
		SignatureAlgorithm: x509.SHA256WithRSA,
		ExtraExtensions:    []pkix.Extension{keyUsageExt, extKeyUsageExt},
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, key)
	if err != nil {
		return nil, fmt.Errorf("enroll: create certificate request: %w", err)
	}
	return der, nil
}

// keyUsageExtension encodes digitalSignature (bit 0) and
// keyEncipherment (bit 2).
func keyUsageExtension() (pkix.Extension, error) {
	bits := asn1.BitString{Bytes: []byte{0xa0}, BitLength: 3}
	value, err := asn1.Marshal(bits)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("enroll: marshal key usage: %w", err)
	}
	return pkix.Extension{
		Id:       oidExtensionKeyUsage,
		Critical: true,
		Value:    value,
	}, nil
}

// extKeyUsageExtension encodes the clientAuth extended key usage.
func extKeyUsageExtension() (pkix.Extension, error) {
	value, err := asn1.Marshal([]asn1.ObjectIdentifier{oidExtKeyUsageClientAuth})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("enroll: marshal extended key usage: %w", err)
	}
	return pkix.Extension{
		Id:    oidExtensionExtKeyUsage,
		Value: value,
	}, nil
}
