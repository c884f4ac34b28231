// Package auth provides authentication strategies for SAP sessions.
//
// # Supported Strategies
//
//   - Basic: static username/password credentials sent as an
//     Authorization header on every request
//   - Browser: federated (SAML) login through a headless browser
//     (github.com/chromedp/chromedp), yielding session cookies
//   - Certificate: mutual TLS with a client certificate obtained from
//     a Secure Login Server enrollment (see package enroll)
//
// Strategies declare an explicit capability set instead of optional
// interface methods, so a caller can tell at compile time which
// strategies perform a login step, produce cookies, or carry
// certificate material.
//
// # Usage
//
// Basic credentials:
//
//	strategy, _ := auth.NewBasic("jdoe", "secret")
//
// Certificate enrollment with a stored-certificate fast path:
//
//	strategy, _ := auth.NewCertificate(auth.CertConfig{
//	    EnrollURL: "https://sls.corp.example.com:8443/sls",
//	    Profile:   "SAPSSO",
//	})
//	result, _ := strategy.Login(ctx)
//	_ = result.Certs // mTLS material for the transport
package auth
