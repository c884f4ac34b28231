// Package enroll implements the certificate enrollment protocol against
// an SAP Secure Login Server.
//
// Enrollment is a five step pipeline:
//
//  1. Ticket exchange: a SPNEGO token is obtained from the platform's
//     existing single-sign-on identity (Kerberos credential cache on
//     Linux/macOS, SSPI on Windows) and posted to the enrollment
//     server's login endpoint. Session cookies from this step carry the
//     server-side enrollment session.
//  2. An RSA keypair is generated at the server's preferred key size.
//  3. A PKCS#10 certificate signing request is built for the current
//     platform user and signed with SHA-256.
//  4. The DER-encoded request is submitted to the certificate endpoint,
//     forwarding the login cookies.
//  5. The base64 PKCS#7 signed-data response is decoded into a leaf
//     certificate plus CA chain, re-encoded as PEM.
//
// Servers that cannot accept Kerberos can be reached through an NTLM
// fallback (github.com/Azure/go-ntlmssp) with explicit credentials.
package enroll
