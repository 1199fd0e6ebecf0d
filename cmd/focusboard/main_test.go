package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/odvcencio/focusboard/pkg/config"
)

// captureStream redirects *stream into a pipe while fn runs and returns
// everything written to it.
func captureStream(t *testing.T, stream **os.File, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	saved := *stream
	*stream = w
	fn()
	w.Close()
	*stream = saved
	data, _ := io.ReadAll(r)
	return string(data)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	return captureStream(t, &os.Stdout, fn)
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	return captureStream(t, &os.Stderr, fn)
}

// snapshotGlobals restores the flag-derived globals that run mutates.
func snapshotGlobals(t *testing.T) {
	t.Helper()
	quiet, color, cfgPath, sess := quietMode, noColor, configPath, sessionFlag
	t.Cleanup(func() {
		quietMode, noColor, configPath, sessionFlag = quiet, color, cfgPath, sess
	})
}

// testConfig returns a configuration where every path points inside the
// test's temp directory and the outward-facing pieces (advisor, state
// watcher, tracing) are switched off.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.State.Path = filepath.Join(dir, "focus_data.json")
	cfg.Skillbook.Path = filepath.Join(dir, "skillbook.db")
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Advisor.Enabled = false
	cfg.State.WatchForChanges = false
	cfg.Tracing.Enabled = false
	cfg.Bus.Driver = "memory"
	return cfg
}

// stubConfig routes loadConfigFn at a fixed configuration for the
// duration of the test.
func stubConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	saved := loadConfigFn
	loadConfigFn = func() (*config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfigFn = saved })
}

func TestParseBoolEnvForms(t *testing.T) {
	cases := []struct {
		raw        string
		value, set bool
	}{
		{"true", true, true},
		{"YES", true, true},
		{"1", true, true},
		{"0", false, true},
		{"off", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Setenv("FOCUSBOARD_QUIET", tc.raw)
		value, set := parseBoolEnv("FOCUSBOARD_QUIET")
		if value != tc.value || set != tc.set {
			t.Errorf("parseBoolEnv(%q) = %v,%v, want %v,%v", tc.raw, value, set, tc.value, tc.set)
		}
	}
}

func TestParseStartupOptions(t *testing.T) {
	t.Setenv("FOCUSBOARD_QUIET", "1")
	t.Setenv("NO_COLOR", "")

	opts, err := parseStartupOptions([]string{"-p", "hello", "--config=proj.yaml", "--session=cli-7", "ask", "what", "today"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := startupOptions{
		prompt:     "hello",
		sessionID:  "cli-7",
		configPath: "proj.yaml",
		args:       []string{"ask", "what", "today"},
		quiet:      true,
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("parsed %+v, want %+v", *opts, want)
	}
}

func TestParseStartupOptionsSpacedFlagValues(t *testing.T) {
	t.Setenv("FOCUSBOARD_QUIET", "")
	t.Setenv("NO_COLOR", "")

	opts, err := parseStartupOptions([]string{"--config", "alt.yaml", "--session", "s1", "--no-color", "stats"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.configPath != "alt.yaml" || opts.sessionID != "s1" {
		t.Errorf("configPath=%q sessionID=%q, want alt.yaml and s1", opts.configPath, opts.sessionID)
	}
	if !opts.noColor {
		t.Error("--no-color flag not applied")
	}
	if len(opts.args) != 1 || opts.args[0] != "stats" {
		t.Errorf("args = %v, want [stats]", opts.args)
	}
}

func TestParseStartupOptionsRejectsDanglingFlags(t *testing.T) {
	for _, flag := range []string{"-p", "--config", "--session"} {
		if _, err := parseStartupOptions([]string{flag}); err == nil {
			t.Errorf("%s without a value should be rejected", flag)
		}
	}
}

func TestIsLoopbackAddress(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:4499": true,
		"localhost:4499": true,
		"[::1]:4499":     true,
		"0.0.0.0:4499":   false,
	} {
		if got := isLoopbackAddress(addr); got != want {
			t.Errorf("isLoopbackAddress(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestHumanReadableURL(t *testing.T) {
	for bind, want := range map[string]string{
		"0.0.0.0:4499": "http://127.0.0.1:4499",
		"[::]:8600":    "http://127.0.0.1:8600",
		"127.0.0.1":    "http://127.0.0.1",
	} {
		if got := humanReadableURL(bind); got != want {
			t.Errorf("humanReadableURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestIsInteractiveTerminal(t *testing.T) {
	// Test binaries run without a tty. Only assert the probe is safe to call.
	_ = isInteractiveTerminal()
}

func TestDispatchSubcommandUnknownInputs(t *testing.T) {
	for arg, wantMsg := range map[string]string{
		"nope":   "unknown command",
		"--nope": "unknown flag",
	} {
		var handled bool
		var code int
		errOut := captureStderr(t, func() {
			handled, code = dispatchSubcommand([]string{arg})
		})
		if !handled {
			t.Errorf("%s: dispatch did not claim the argument", arg)
			continue
		}
		if code != 1 {
			t.Errorf("%s: code = %d, want 1", arg, code)
		}
		if !strings.Contains(errOut, wantMsg) {
			t.Errorf("%s: stderr %q does not mention %q", arg, errOut, wantMsg)
		}
	}
}

func TestDispatchSubcommandHelp(t *testing.T) {
	out := captureStdout(t, func() {
		handled, code := dispatchSubcommand([]string{"--help"})
		if !handled || code != 0 {
			t.Errorf("--help: handled=%v code=%d", handled, code)
		}
	})
	for _, want := range []string{
		"Focusboard - Personal Productivity Assistant",
		"import <file> [--dry-run]",
		"GROQ_API_KEY",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("help text does not mention %q", want)
		}
	}
}

func TestDispatchSubcommandVersion(t *testing.T) {
	out := captureStdout(t, func() {
		handled, code := dispatchSubcommand([]string{"version"})
		if !handled || code != 0 {
			t.Errorf("version: handled=%v code=%d", handled, code)
		}
	})
	if !strings.Contains(out, "Focusboard") {
		t.Errorf("version output %q does not name the binary", out)
	}
}

func TestRunCommandHonorsExitCodeOverride(t *testing.T) {
	var code int
	errOut := captureStderr(t, func() {
		code = runCommand(func(_ []string) error {
			return withExitCode(errors.New("state unreadable"), 2)
		}, nil)
	})
	if code != 2 {
		t.Errorf("code = %d, want 2", code)
	}
	if !strings.Contains(errOut, "state unreadable") {
		t.Errorf("stderr %q does not carry the error", errOut)
	}
}

func TestRunHelpSkipsConfigLoad(t *testing.T) {
	snapshotGlobals(t)
	t.Setenv("FOCUSBOARD_QUIET", "")
	t.Setenv("NO_COLOR", "")

	loaded := false
	saved := loadConfigFn
	loadConfigFn = func() (*config.Config, error) {
		loaded = true
		return testConfig(t), nil
	}
	t.Cleanup(func() { loadConfigFn = saved })

	out := captureStdout(t, func() {
		if code := run([]string{"--help"}); code != 0 {
			t.Errorf("run --help = %d, want 0", code)
		}
	})
	if loaded {
		t.Error("help output should not require configuration")
	}
	if !strings.Contains(out, "USAGE:") {
		t.Errorf("help output %q has no usage section", out)
	}
}

func TestRunReportsConfigFailure(t *testing.T) {
	snapshotGlobals(t)
	t.Setenv("FOCUSBOARD_QUIET", "")
	t.Setenv("NO_COLOR", "")

	saved := loadConfigFn
	loadConfigFn = func() (*config.Config, error) {
		return nil, errors.New("yaml: bad indentation")
	}
	t.Cleanup(func() { loadConfigFn = saved })

	var code int
	errOut := captureStderr(t, func() {
		code = run([]string{"-p", "plan my day"})
	})
	if code != 2 {
		t.Errorf("code = %d, want 2", code)
	}
	if !strings.Contains(errOut, "yaml: bad indentation") {
		t.Errorf("stderr %q does not surface the config error", errOut)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	snapshotGlobals(t)
	t.Setenv("FOCUSBOARD_QUIET", "")
	t.Setenv("NO_COLOR", "")

	var code int
	errOut := captureStderr(t, func() {
		code = run([]string{"--session"})
	})
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "--session requires a value") {
		t.Errorf("stderr %q does not explain the flag error", errOut)
	}
}

func TestRunConfigCommand(t *testing.T) {
	t.Run("unknown subcommand", func(t *testing.T) {
		if err := runConfigCommand([]string{"frobnicate"}); err == nil {
			t.Fatal("want error for unrecognized subcommand")
		}
	})

	t.Run("show prints resolved paths", func(t *testing.T) {
		cfg := testConfig(t)
		stubConfig(t, cfg)

		out := captureStdout(t, func() {
			if err := runConfigCommand([]string{"show"}); err != nil {
				t.Fatalf("show: %v", err)
			}
		})
		if !strings.Contains(out, cfg.State.Path) {
			t.Errorf("output %q does not list the state path", out)
		}
		if !strings.Contains(out, "Driver: memory") {
			t.Errorf("output %q does not list the bus driver", out)
		}
	})

	t.Run("check flags advisor without key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Advisor.Enabled = true
		cfg.Advisor.APIKey = ""
		stubConfig(t, cfg)

		out := captureStdout(t, func() {
			if err := runConfigCommand([]string{"check"}); err != nil {
				t.Fatalf("check: %v", err)
			}
		})
		if !strings.Contains(out, "enabled but no API key") {
			t.Errorf("output %q does not warn about the missing key", out)
		}
		if !strings.Contains(out, "✓ Configuration is valid") {
			t.Errorf("output %q does not confirm validity", out)
		}
	})

	t.Run("path lists search locations", func(t *testing.T) {
		out := captureStdout(t, func() {
			if err := runConfigCommand([]string{"path"}); err != nil {
				t.Fatalf("path: %v", err)
			}
		})
		if !strings.Contains(out, "config.yaml") {
			t.Errorf("output %q does not mention config.yaml", out)
		}
	})
}

func TestNewTerminalPlainOutput(t *testing.T) {
	snapshotGlobals(t)
	noColor = true

	out := captureStdout(t, func() {
		_ = newTerminal().Markdown("**Physics** added")
	})
	if !strings.Contains(out, "**Physics** added") {
		t.Errorf("plain writer should pass markdown through, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain writer emitted escape sequences: %q", out)
	}
}
