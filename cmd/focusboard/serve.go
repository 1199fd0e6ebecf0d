package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/odvcencio/focusboard/pkg/config"
	"github.com/odvcencio/focusboard/pkg/server"
	"github.com/odvcencio/focusboard/pkg/session"
)

type apiServer interface {
	Start(ctx context.Context) error
}

// serveNewServerFn allows tests to stub server construction.
var serveNewServerFn = func(cfg server.Config, rt *appRuntime) apiServer {
	return server.New(cfg, rt.pipe, rt.store, rt.book, rt.hub, rt.logger)
}

func runServeCommand(args []string) error {
	appCfg, err := loadConfigFn()
	if err != nil {
		return withExitCode(err, exitCodeConfig)
	}

	serverDefaults := appCfg.Server
	if strings.TrimSpace(serverDefaults.Bind) == "" {
		serverDefaults.Bind = config.DefaultServerBind
	}

	allowedOrigins := append([]string{}, serverDefaults.AllowedOrigins...)

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	bind := fs.String("bind", serverDefaults.Bind, "address to bind the API server")
	requireToken := fs.Bool("require-token", serverDefaults.RequireToken, "reject clients that do not supply an auth token")
	publicMetrics := fs.Bool("public-metrics", serverDefaults.PublicMetrics, "expose /metrics without authentication (useful for Prometheus scraping)")
	authTokenFlag := fs.String("auth-token", "", "token clients must supply (default: FOCUSBOARD_SERVER_TOKEN)")
	fs.Var(&listFlag{dest: &allowedOrigins}, "allow-origin", "extra allowed Origin values (repeatable; comma lists accepted)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// The config layer already folds FOCUSBOARD_SERVER_TOKEN into
	// serverDefaults.AuthToken; the flag wins over both.
	token := strings.TrimSpace(*authTokenFlag)
	if token == "" {
		token = strings.TrimSpace(serverDefaults.AuthToken)
	}

	// A loopback bind that requires a token but has none gets a
	// throwaway one, so the default config works out of the box. Public
	// binds never get this convenience; server.Start refuses them
	// without explicit credentials.
	if *requireToken && token == "" && isLoopbackAddress(strings.TrimSpace(*bind)) {
		generated, err := randomToken()
		if err != nil {
			return err
		}
		token = generated
		fmt.Fprintf(os.Stderr, "Generated API token for this run: %s\n", token)
	}

	// Each serve process logs under its own session identity unless the
	// user pinned one with --session, so two servers never interleave
	// writes into the same session file.
	sessionID := sessionFlag
	if sessionID == "" {
		sessionID = session.GenerateSessionID("serve")
	}

	rt, err := initRuntimeFn(appCfg, sessionID)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := serveNewServerFn(server.Config{
		Bind:           *bind,
		AuthToken:      token,
		RequireToken:   *requireToken,
		PublicMetrics:  *publicMetrics,
		AllowedOrigins: allowedOrigins,
		Version:        version,
	}, rt)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !quietMode {
		fmt.Printf("Focusboard API listening on %s\n", humanReadableURL(*bind))
	}
	return srv.Start(ctx)
}

func randomToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func isLoopbackAddress(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

func humanReadableURL(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return fmt.Sprintf("http://%s", bind)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if port == "" {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}

// listFlag accumulates repeatable flag values into a slice, splitting
// comma-separated arguments along the way.
type listFlag struct {
	dest *[]string
}

func (f *listFlag) String() string {
	if f == nil || f.dest == nil {
		return ""
	}
	return strings.Join(*f.dest, ",")
}

func (f *listFlag) Set(raw string) error {
	if f.dest == nil {
		return fmt.Errorf("flag has no destination")
	}
	for _, piece := range strings.Split(raw, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			*f.dest = append(*f.dest, piece)
		}
	}
	return nil
}
