package enroll

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"os/user"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"

	"github.com/smnsjas/go-sapauth/transport"
)

const (
	// DefaultLoginPath is the enrollment server's login endpoint,
	// relative to the enrollment base URL.
	DefaultLoginPath = "login"

	// DefaultCertPath is the certificate issuance endpoint.
	DefaultCertPath = "certificate"

	// DefaultProfile is the enrollment profile used when none is given.
	DefaultProfile = "default"

	// contentTypePKCS10 is the content type for CSR submission.
	contentTypePKCS10 = "application/pkcs10"
)

// Material is an enrolled client certificate: the full PEM chain
// (leaf first, then CA chain) and the PEM private key. Never logged.
type Material struct {
	FullChain  string
	PrivateKey string
}

// TLSCertificate builds the tls.Certificate used for mutual TLS.
func (m *Material) TLSCertificate() (tls.Certificate, error) {
	cert, err := tls.X509KeyPair([]byte(m.FullChain), []byte(m.PrivateKey))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("enroll: build TLS certificate: %w", err)
	}
	return cert, nil
}

// Leaf parses and returns the first certificate of the chain.
func (m *Material) Leaf() (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(m.FullChain))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, &CertificateError{Reason: "no certificate block in chain"}
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, &CertificateError{Reason: "parse leaf certificate", Err: err}
	}
	return cert, nil
}

// NTLMCredentials enable the NTLM fallback for servers that cannot
// accept a Kerberos ticket. Unlike the ticket exchange, NTLM requires
// explicit credentials.
type NTLMCredentials struct {
	Domain   string
	Username string
	Password string
}

// Config configures an enrollment run. Defaults are supplied by the
// caller through DefaultConfig, not read from ambient state, so the
// pipeline is testable without process-level mutation.
type Config struct {
	// BaseURL is the enrollment server base URL (required).
	BaseURL string

	// Profile is the enrollment profile query parameter.
	Profile string

	// LoginPath and CertPath are the server endpoints relative to
	// BaseURL. These are a server contract.
	LoginPath string
	CertPath  string

	// SPN overrides the service principal derived from BaseURL's host.
	SPN string

	// CommonName overrides the CSR subject. Defaults to the current
	// platform username.
	CommonName string

	// Ticket provides the SPNEGO token. Defaults to the platform
	// provider (ccache on unix, SSPI on Windows).
	Ticket TicketProvider

	// TicketConfig configures the default platform provider.
	TicketConfig TicketConfig

	// NTLM, when set, authenticates the login step with NTLM instead
	// of a negotiate ticket.
	NTLM *NTLMCredentials

	// Insecure skips TLS verification towards the enrollment server.
	Insecure bool

	// Timeout bounds each HTTP call.
	Timeout time.Duration
}

// DefaultConfig returns a Config with defaults for the given server.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Profile:   DefaultProfile,
		LoginPath: DefaultLoginPath,
		CertPath:  DefaultCertPath,
		Timeout:   transport.DefaultTimeout,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("enroll: enrollment server URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("enroll: invalid enrollment URL: %w", err)
	}
	return nil
}

// loginResponse is the JSON body of the login endpoint carrying the
// server's preferred key size.
type loginResponse struct {
	KeyLength int `json:"keyLength"`
}

// Enroll runs the full enrollment pipeline and returns the issued
// certificate material. Each step short-circuits on failure.
func Enroll(ctx context.Context, cfg Config) (*Material, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	tr := transport.NewHTTPTransport(
		transport.WithTimeout(cfg.Timeout),
		transport.WithInsecureSkipVerify(cfg.Insecure),
	)

	// Step 1: ticket exchange + login.
	keyBits, jar, err := login(ctx, tr, cfg)
	if err != nil {
		return nil, err
	}

	// Step 2: keypair.
	key, err := GenerateKey(keyBits)
	if err != nil {
		return nil, err
	}

	// Step 3: CSR.
	cn := cfg.CommonName
	if cn == "" {
		cn, err = currentUsername()
		if err != nil {
			return nil, err
		}
	}
	csrDER, err := BuildCSR(key, cn)
	if err != nil {
		return nil, err
	}

	// Step 4: submission.
	envelope, err := submit(ctx, tr, cfg, jar, csrDER)
	if err != nil {
		return nil, err
	}

	// Step 5: decode.
	fullChain, err := DecodeSignedData(envelope)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	return &Material{
		FullChain:  fullChain,
		PrivateKey: string(keyPEM),
	}, nil
}

// applyDefaults fills zero-valued optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.CertPath == "" {
		cfg.CertPath = DefaultCertPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = transport.DefaultTimeout
	}
}

// login performs the ticket exchange against the login endpoint and
// returns the server's preferred key size plus the session cookies that
// must be forwarded to the certificate endpoint.
func login(ctx context.Context, tr *transport.HTTPTransport, cfg Config) (int, *transport.Jar, error) {
	endpoint, err := endpointURL(cfg.BaseURL, cfg.LoginPath, cfg.Profile)
	if err != nil {
		return 0, nil, err
	}

	header := http.Header{}

	if cfg.NTLM != nil {
		// NTLM fallback: the ntlmssp negotiator consumes the Basic
		// credentials and drives the challenge/response handshake.
		client := tr.Client()
		client.Transport = ntlmssp.Negotiator{RoundTripper: client.Transport}
		userinfo := cfg.NTLM.Username
		if cfg.NTLM.Domain != "" {
			userinfo = cfg.NTLM.Domain + "\\" + cfg.NTLM.Username
		}
		basic := base64.StdEncoding.EncodeToString([]byte(userinfo + ":" + cfg.NTLM.Password))
		header.Set("Authorization", "Basic "+basic)
	} else {
		spn := cfg.SPN
		if spn == "" {
			spn, err = SPNFromURL(cfg.BaseURL)
			if err != nil {
				return 0, nil, err
			}
		}

		provider := cfg.Ticket
		if provider == nil {
			provider, err = NewPlatformTicketProvider(cfg.TicketConfig)
			if err != nil {
				return 0, nil, &TicketExchangeError{SPN: spn, Err: err}
			}
		}

		token, err := provider.Token(ctx, spn)
		if err != nil {
			return 0, nil, &TicketExchangeError{SPN: spn, Err: err}
		}
		header.Set("Authorization", "Negotiate "+base64.StdEncoding.EncodeToString(token))
	}

	resp, err := tr.Do(ctx, http.MethodPost, endpoint, header, nil)
	if err != nil {
		return 0, nil, err
	}
	if !resp.IsSuccess() {
		return 0, nil, &HTTPError{URL: endpoint, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	// The server requires session continuity from authentication to
	// certificate issuance; thread its cookies into the next call.
	jar := transport.NewJar()
	jar.SetAll(transport.ParseSetCookie(resp.Header.Values("Set-Cookie")))

	keyBits := DefaultKeyBits
	var lr loginResponse
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &lr) == nil && lr.KeyLength > 0 {
		keyBits = lr.KeyLength
	}
	return keyBits, jar, nil
}

// submit posts the DER CSR to the certificate endpoint and returns the
// raw base64 signed-data response body.
func submit(ctx context.Context, tr *transport.HTTPTransport, cfg Config, jar *transport.Jar, csrDER []byte) (string, error) {
	endpoint, err := endpointURL(cfg.BaseURL, cfg.CertPath, cfg.Profile)
	if err != nil {
		return "", err
	}

	header := http.Header{}
	header.Set("Content-Type", contentTypePKCS10)
	if cookie := jar.Header(); cookie != "" {
		header.Set("Cookie", cookie)
	}

	resp, err := tr.Do(ctx, http.MethodPost, endpoint, header, csrDER)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", &HTTPError{URL: endpoint, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return string(resp.Body), nil
}

// endpointURL joins the base URL, endpoint path and profile parameter.
func endpointURL(base, path, profile string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("enroll: invalid enrollment URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	q := u.Query()
	q.Set("profile", profile)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// currentUsername resolves the platform user for the CSR subject.
func currentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("enroll: resolve current user: %w", err)
	}
	name := u.Username
	// Windows reports DOMAIN\user; the subject wants the bare name.
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		name = name[i+1:]
	}
	return name, nil
}
