// Package sapauth provides authentication and session management for
// SAP systems over HTTP, including CSRF token handling and client
// certificate enrollment.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  session/      Session lifecycle + request execution    │
//	├─────────────────────────────────────────────────────────┤
//	│  auth/         Pluggable auth strategies                │
//	├─────────────────────────────────────────────────────────┤
//	│  enroll/       Kerberos/NTLM certificate enrollment     │
//	│  certstore/    On-disk certificate persistence          │
//	├─────────────────────────────────────────────────────────┤
//	│  transport/    HTTP exchange + cookie handling          │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	strategy, err := auth.NewBasic("jdoe", "secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := session.DefaultConfig()
//	cfg.BaseURL = "https://host.corp.example.com:8007"
//	cfg.Client = "100"
//	c, err := session.New(cfg, strategy)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Logout(ctx)
//
//	if err := c.Login(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := c.Request(ctx, session.Options{Path: "/sap/bc/adt/discovery"})
package sapauth
