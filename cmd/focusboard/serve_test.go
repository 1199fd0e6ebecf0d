package main

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/odvcencio/focusboard/pkg/config"
	"github.com/odvcencio/focusboard/pkg/server"
)

type fakeAPIServer struct {
	started bool
	err     error
}

func (f *fakeAPIServer) Start(ctx context.Context) error {
	f.started = true
	return f.err
}

func stubServe(t *testing.T, captured *server.Config) *fakeAPIServer {
	t.Helper()
	fake := &fakeAPIServer{}
	origServe := serveNewServerFn
	serveNewServerFn = func(cfg server.Config, rt *appRuntime) apiServer {
		*captured = cfg
		return fake
	}
	origInit := initRuntimeFn
	initRuntimeFn = func(cfg *config.Config, sessionID string) (*appRuntime, error) {
		return &appRuntime{}, nil
	}
	t.Cleanup(func() {
		serveNewServerFn = origServe
		initRuntimeFn = origInit
	})
	return fake
}

func runServeCapturing(t *testing.T, args []string) (string, error) {
	t.Helper()
	var err error
	errOut := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = runServeCommand(args)
		})
	})
	return errOut, err
}

func TestRunServeCommandGeneratesLoopbackToken(t *testing.T) {
	stubConfig(t, testConfig(t))
	var captured server.Config
	fake := stubServe(t, &captured)

	errOut, err := runServeCapturing(t, []string{"--bind", "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("runServeCommand: %v", err)
	}
	if !fake.started {
		t.Fatal("expected server Start to be called")
	}
	if captured.Bind != "127.0.0.1:0" {
		t.Fatalf("bind=%q want 127.0.0.1:0", captured.Bind)
	}
	if !captured.RequireToken {
		t.Fatal("expected RequireToken to stay enabled")
	}
	if len(captured.AuthToken) != 64 {
		t.Fatalf("token length=%d want 64 hex chars", len(captured.AuthToken))
	}
	if _, decErr := hex.DecodeString(captured.AuthToken); decErr != nil {
		t.Fatalf("token is not hex: %v", decErr)
	}
	if captured.Version != version {
		t.Fatalf("version=%q want %q", captured.Version, version)
	}
	if !strings.Contains(errOut, "Generated API token") {
		t.Fatalf("expected generated token notice, got %q", errOut)
	}
}

func TestRunServeCommandKeepsConfiguredToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.AuthToken = "configured-secret-token-0123456789abcdef"
	stubConfig(t, cfg)
	var captured server.Config
	stubServe(t, &captured)

	errOut, err := runServeCapturing(t, nil)
	if err != nil {
		t.Fatalf("runServeCommand: %v", err)
	}
	if captured.AuthToken != cfg.Server.AuthToken {
		t.Fatalf("token=%q want configured token", captured.AuthToken)
	}
	if strings.Contains(errOut, "Generated API token") {
		t.Fatalf("unexpected token generation: %q", errOut)
	}
}

func TestRunServeCommandFlagTokenWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.AuthToken = "configured-secret-token-0123456789abcdef"
	stubConfig(t, cfg)
	var captured server.Config
	stubServe(t, &captured)

	_, err := runServeCapturing(t, []string{"--auth-token", "flag-token-fedcba9876543210aabbccdd"})
	if err != nil {
		t.Fatalf("runServeCommand: %v", err)
	}
	if captured.AuthToken != "flag-token-fedcba9876543210aabbccdd" {
		t.Fatalf("token=%q want flag token", captured.AuthToken)
	}
}

func TestRunServeCommandPublicBindSkipsGeneratedToken(t *testing.T) {
	stubConfig(t, testConfig(t))
	var captured server.Config
	stubServe(t, &captured)

	errOut, err := runServeCapturing(t, []string{"--bind", "0.0.0.0:4499"})
	if err != nil {
		t.Fatalf("runServeCommand: %v", err)
	}
	if captured.AuthToken != "" {
		t.Fatalf("token=%q want empty for public bind", captured.AuthToken)
	}
	if strings.Contains(errOut, "Generated API token") {
		t.Fatalf("public bind must not get a throwaway token: %q", errOut)
	}
}

func TestRunServeCommandSessionIdentity(t *testing.T) {
	stubConfig(t, testConfig(t))
	var captured server.Config
	stubServe(t, &captured)

	var gotSession string
	initRuntimeFn = func(cfg *config.Config, sessionID string) (*appRuntime, error) {
		gotSession = sessionID
		return &appRuntime{}, nil
	}

	if _, err := runServeCapturing(t, nil); err != nil {
		t.Fatalf("runServeCommand: %v", err)
	}
	if !strings.HasPrefix(gotSession, "serve-") {
		t.Fatalf("sessionID=%q want generated serve- identity", gotSession)
	}

	oldFlag := sessionFlag
	sessionFlag = "pinned-session"
	t.Cleanup(func() { sessionFlag = oldFlag })

	if _, err := runServeCapturing(t, nil); err != nil {
		t.Fatalf("runServeCommand: %v", err)
	}
	if gotSession != "pinned-session" {
		t.Fatalf("sessionID=%q want pinned-session", gotSession)
	}
}

func TestRunServeCommandMergesAllowedOrigins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.AllowedOrigins = []string{"https://a.example"}
	stubConfig(t, cfg)
	var captured server.Config
	stubServe(t, &captured)

	_, err := runServeCapturing(t, []string{"--allow-origin", "https://b.example, https://c.example"})
	if err != nil {
		t.Fatalf("runServeCommand: %v", err)
	}
	want := []string{"https://a.example", "https://b.example", "https://c.example"}
	if len(captured.AllowedOrigins) != len(want) {
		t.Fatalf("origins=%v want %v", captured.AllowedOrigins, want)
	}
	for i, origin := range want {
		if captured.AllowedOrigins[i] != origin {
			t.Fatalf("origins=%v want %v", captured.AllowedOrigins, want)
		}
	}
}

func TestListFlag(t *testing.T) {
	var target []string
	v := listFlag{dest: &target}
	if err := v.Set("a, b"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := v.Set("c"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(target) != 3 || target[0] != "a" || target[1] != "b" || target[2] != "c" {
		t.Fatalf("target=%v want [a b c]", target)
	}
	if got := v.String(); got != "a,b,c" {
		t.Fatalf("String()=%q want a,b,c", got)
	}
}

func TestRandomToken(t *testing.T) {
	token, err := randomToken()
	if err != nil {
		t.Fatalf("randomToken: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("len=%d want 64", len(token))
	}
	if _, err := hex.DecodeString(token); err != nil {
		t.Fatalf("not hex: %v", err)
	}
}
