// Command sap-session authenticates against an SAP system and runs a
// request with an active session.
//
// Password can be provided via:
//   - -pass flag (least secure, visible in process list)
//   - SAP_PASSWORD environment variable (recommended)
//   - stdin prompt (if neither flag nor env var is set)
//
// Usage:
//
//	sap-session -server https://host:8007 -sap-client 100 -user jdoe -request /sap/bc/adt/discovery
//
// Examples:
//
//	# Basic auth with environment variable
//	export SAP_PASSWORD='secret'
//	sap-session -server https://host:8007 -sap-client 100 -user jdoe -request /sap/bc/adt/discovery
//
//	# Certificate enrollment (Kerberos ticket from the default cache)
//	sap-session -server https://host:8007 -sap-client 100 -auth cert \
//	    -enroll-url https://enroll.corp.example.com/mgmt/slc
//
//	# Federated browser login, then export the session for another process
//	sap-session -server https://host:8007 -sap-client 100 -auth browser \
//	    -user jdoe -export /tmp/sap-session.json
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/smnsjas/go-sapauth/auth"
	"github.com/smnsjas/go-sapauth/enroll"
	saplog "github.com/smnsjas/go-sapauth/internal/log"
	"github.com/smnsjas/go-sapauth/session"
)

func main() {
	server := flag.String("server", "", "SAP server base URL (e.g. https://host:8007)")
	sapClient := flag.String("sap-client", "", "SAP client number (e.g. 100)")
	authType := flag.String("auth", "basic", "Authentication type: basic, browser, cert")
	username := flag.String("user", "", "Username for authentication")
	password := flag.String("pass", "", "Password (use SAP_PASSWORD env var instead)")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification")
	timeout := flag.Duration("timeout", 60*time.Second, "Per-request timeout")
	noRefresh := flag.Bool("no-refresh", false, "Disable background session refresh")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (empty = no logging)")
	logFile := flag.String("logfile", "", "Write logs to this file (rotated) instead of stderr")

	// Certificate enrollment flags
	enrollURL := flag.String("enroll-url", "", "Enrollment service base URL (required with -auth cert)")
	profile := flag.String("profile", "", "Enrollment certificate profile")
	spn := flag.String("spn", "", "Service Principal Name override (e.g. HTTP/enroll.corp.example.com)")
	realm := flag.String("realm", "", "Kerberos realm (e.g. EXAMPLE.COM)")
	krb5Conf := flag.String("krb5conf", "", "Path to krb5.conf file")
	ccache := flag.String("ccache", "", "Path to Kerberos credential cache")
	useNTLM := flag.Bool("ntlm", false, "Use NTLM for enrollment instead of Kerberos")
	forceReenroll := flag.Bool("force-reenroll", false, "Enroll a fresh certificate even if a valid one is stored")

	// Browser login flags
	headful := flag.Bool("headful", false, "Show the browser window during federated login")
	loginPath := flag.String("login-path", "", "Login page path for browser auth")

	// Session handoff flags
	exportPath := flag.String("export", "", "Write the session snapshot to this file after login")
	importPath := flag.String("import", "", "Restore a session snapshot instead of logging in")

	request := flag.String("request", "", "Path to GET once the session is active")
	doLogout := flag.Bool("logout", false, "Log off and invalidate the session before exiting")

	flag.Parse()

	if *server == "" {
		fmt.Fprintln(os.Stderr, "Error: -server is required")
		flag.Usage()
		os.Exit(1)
	}
	if *sapClient == "" {
		fmt.Fprintln(os.Stderr, "Error: -sap-client is required")
		flag.Usage()
		os.Exit(1)
	}

	strategy, err := buildStrategy(*authType, strategyFlags{
		baseURL:       *server,
		username:      *username,
		password:      *password,
		enrollURL:     *enrollURL,
		profile:       *profile,
		spn:           *spn,
		realm:         *realm,
		krb5Conf:      *krb5Conf,
		ccache:        *ccache,
		useNTLM:       *useNTLM,
		forceReenroll: *forceReenroll,
		insecure:      *insecure,
		headful:       *headful,
		loginPath:     *loginPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := session.DefaultConfig()
	cfg.BaseURL = *server
	cfg.Client = *sapClient
	cfg.Timeout = *timeout
	cfg.InsecureSkipVerify = *insecure
	cfg.AutoRefresh = !*noRefresh
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		var out io.Writer = os.Stderr
		if *logFile != "" {
			rf, err := saplog.NewRotatingFile(*logFile, 10*1024*1024, 3)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
				os.Exit(1)
			}
			defer rf.Close()
			out = rf
		}
		cfg.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	} else {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	client, err := session.New(cfg, strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *importPath != "" {
		fmt.Printf("Restoring session from %s...\n", *importPath)
		if err := importSnapshot(client, *importPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error restoring session: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Logging in to %s (client %s, %s auth)...\n", *server, *sapClient, strategy.Type())
		if err := client.Login(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error logging in: %v\n", err)
			os.Exit(1)
		}
	}

	sess := client.Session()
	fmt.Println("Session active!")
	fmt.Printf("  User: %s\n", sess.Username)
	fmt.Printf("  Expires: %s\n", sess.ExpiresAt.Format(time.RFC3339))

	if *request != "" {
		fmt.Printf("GET %s\n", *request)
		fmt.Println("---")
		resp, err := client.Request(ctx, session.Options{Path: *request})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Status: %s\n", resp.Status)
		if len(resp.Body) > 0 {
			fmt.Println(string(resp.Body))
		}
	}

	if *exportPath != "" {
		fmt.Printf("Exporting session to %s...\n", *exportPath)
		if err := exportSnapshot(client, *exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting session: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Exported. The session stays alive for the importing process.")
		return
	}

	if *doLogout {
		if err := client.Logout(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error logging out: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Logged out.")
	}
}

type strategyFlags struct {
	baseURL       string
	username      string
	password      string
	enrollURL     string
	profile       string
	spn           string
	realm         string
	krb5Conf      string
	ccache        string
	useNTLM       bool
	forceReenroll bool
	insecure      bool
	headful       bool
	loginPath     string
}

// buildStrategy assembles the auth strategy for the chosen type.
func buildStrategy(authType string, f strategyFlags) (auth.Strategy, error) {
	switch authType {
	case "basic":
		if f.username == "" {
			return nil, fmt.Errorf("-user is required for basic auth")
		}
		s, err := auth.NewBasic(f.username, getPassword(f.password))
		if err != nil {
			return nil, err
		}
		return s, nil

	case "browser":
		if f.username == "" {
			return nil, fmt.Errorf("-user is required for browser auth")
		}
		opts := []auth.BrowserOption{}
		if f.loginPath != "" {
			opts = append(opts, auth.WithLoginPath(f.loginPath))
		}
		if f.headful {
			opts = append(opts, auth.WithHeadful())
		}
		if f.insecure {
			opts = append(opts, auth.WithIgnoreTLSErrors())
		}
		s, err := auth.NewBrowser(f.username, getPassword(f.password), f.baseURL, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil

	case "cert":
		if f.enrollURL == "" {
			return nil, fmt.Errorf("-enroll-url is required for certificate auth")
		}
		cfg := auth.CertConfig{
			EnrollURL:     f.enrollURL,
			Profile:       f.profile,
			SPN:           f.spn,
			ForceReenroll: f.forceReenroll,
			Insecure:      f.insecure,
			TicketConfig: enroll.TicketConfig{
				Realm:        f.realm,
				Krb5ConfPath: f.krb5Conf,
				CCachePath:   f.ccache,
			},
		}
		if f.useNTLM {
			if f.username == "" {
				return nil, fmt.Errorf("-user is required for NTLM enrollment")
			}
			cfg.NTLM = &enroll.NTLMCredentials{
				Username: f.username,
				Password: getPassword(f.password),
			}
		}
		s, err := auth.NewCertificate(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown auth type %q (valid: basic, browser, cert)", authType)
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q. Valid values: debug, info, warn, error", s)
}

// exportSnapshot writes the session snapshot as JSON, readable only by
// the current user.
func exportSnapshot(client *session.Client, path string) error {
	snap, err := client.Export()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func importSnapshot(client *session.Client, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	return client.Import(&snap)
}

// getPassword returns password from flag, env var, or prompts for it.
func getPassword(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envPass := os.Getenv("SAP_PASSWORD"); envPass != "" {
		return envPass
	}

	fmt.Fprint(os.Stderr, "Password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		passBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return ""
		}
		return string(passBytes)
	}

	// Piped input: read one line.
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
