package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/odvcencio/focusboard/pkg/config"
	"github.com/odvcencio/focusboard/pkg/terminal"
)

// Set at build time through -ldflags.
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	quietMode   bool
	noColor     bool
	configPath  string
	sessionFlag string
)

// loadConfigFn allows tests to stub configuration loading.
var loadConfigFn = loadConfig

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// newTerminal builds the conversation writer, honoring --no-color by
// skipping markdown styling entirely.
func newTerminal() *terminal.Writer {
	if noColor {
		return terminal.NewPlain()
	}
	return terminal.New()
}

type startupOptions struct {
	prompt     string
	sessionID  string
	configPath string
	args       []string
	quiet      bool
	noColor    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opts, err := parseStartupOptions(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	quietMode = opts.quiet
	noColor = opts.noColor
	configPath = opts.configPath
	sessionFlag = opts.sessionID

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	if handled, code := dispatchSubcommand(opts.args); handled {
		return code
	}

	cfg, err := loadConfigFn()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 2
	}
	if !quietMode {
		for _, warning := range cfg.ValidationWarnings() {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	rt, err := initRuntimeFn(cfg, opts.sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}
	defer rt.Close()

	if opts.prompt != "" {
		return executeOneShot(rt, opts.prompt)
	}
	if text, ok := readPipedInput(opts.args); ok {
		return executeOneShot(rt, text)
	}

	if err := runInteractive(rt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// readPipedInput drains stdin when the binary was invoked with piped
// text rather than a terminal, as in `echo "essay due friday" | focusboard`.
func readPipedInput(args []string) (string, bool) {
	if len(args) != 0 || isInteractiveTerminal() {
		return "", false
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", false
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", false
	}
	text := strings.TrimRight(string(data), "\n")
	return text, strings.TrimSpace(text) != ""
}

// subcommands maps the first CLI argument to its handler.
var subcommands = map[string]func([]string) error{
	"ask":      runAskCommand,
	"serve":    runServeCommand,
	"import":   runImportCommand,
	"stats":    runStatsCommand,
	"patterns": runPatternsCommand,
	"config":   runConfigCommand,
}

func dispatchSubcommand(args []string) (bool, int) {
	if len(args) == 0 {
		return false, 0
	}

	switch args[0] {
	case "--version", "-v", "version":
		printVersion()
		return true, 0
	case "--help", "-h", "help":
		printHelp()
		return true, 0
	}

	if handler, ok := subcommands[args[0]]; ok {
		return true, runCommand(handler, args[1:])
	}

	kind := "command"
	if strings.HasPrefix(args[0], "-") {
		kind = "flag"
	}
	fmt.Fprintf(os.Stderr, "Error: unknown %s: %s\n", kind, args[0])
	fmt.Fprintln(os.Stderr, "Run 'focusboard --help' for usage.")
	return true, 1
}

func runCommand(handler func([]string) error, args []string) int {
	err := handler(args)
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCodeForError(err)
}

func parseStartupOptions(raw []string) (*startupOptions, error) {
	opts := &startupOptions{}
	if v, ok := parseBoolEnv("FOCUSBOARD_QUIET"); ok {
		opts.quiet = v
	}
	if v, ok := parseBoolEnv("NO_COLOR"); ok {
		opts.noColor = v
	}

	rest := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		// Flags that consume the following argument.
		var value *string
		switch arg {
		case "-p":
			value = &opts.prompt
		case "--config", "-c":
			value = &opts.configPath
		case "--session":
			value = &opts.sessionID
		}
		if value != nil {
			i++
			if i == len(raw) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			*value = raw[i]
			continue
		}

		switch {
		case arg == "--quiet" || arg == "-q":
			opts.quiet = true
		case arg == "--no-color":
			opts.noColor = true
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--session="):
			opts.sessionID = strings.TrimPrefix(arg, "--session=")
		default:
			rest = append(rest, arg)
		}
	}

	opts.args = rest
	return opts, nil
}

// parseBoolEnv reads a boolean environment variable. The second result
// reports whether the variable held a recognizable value at all.
func parseBoolEnv(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

const helpText = `Focusboard - Personal Productivity Assistant

USAGE:
  focusboard [FLAGS] [COMMAND]

MODES:
  focusboard                       Start interactive assistant session
  focusboard -p "text"             One-shot mode: process text and exit

COMMANDS:
  ask <text...>                    Process one input and print the reply
  serve [--bind host:port]         Start the local HTTP API
  import <file> [--dry-run]        Add classes from an extracted schedule file
  stats                            Show level, XP and today's workload
  patterns [--limit n]             Show learned schedule patterns
  config [check|show|path]         Manage configuration

FLAGS:
  -p <text>                        Process text in one-shot mode
  -c, --config <path>              Use custom config file
  --session <id>                   Conversation session identifier
  -q, --quiet                      Suppress non-essential output
  --no-color                       Disable colored output
  -v, --version                    Show version information
  -h, --help                       Show this help

ENVIRONMENT:
  GROQ_API_KEY                     Advisory model API key (optional)
  FOCUSBOARD_STATE_PATH            Override state document path
  FOCUSBOARD_SKILLBOOK_PATH        Override skillbook database path
  FOCUSBOARD_LOG_DIR               Override log directory
  FOCUSBOARD_SERVER_TOKEN          API auth token (serve mode)
  FOCUSBOARD_NATS_URL              NATS server URL (switches bus driver)
  FOCUSBOARD_QUIET                 Suppress non-essential output
  NO_COLOR                         Disable colored output

CONFIGURATION:
  User config:    ~/.focusboard/config.yaml
  Project config: ./.focusboard/config.yaml
  Run 'focusboard config check' to validate your setup

DOCUMENTATION:
  https://github.com/odvcencio/focusboard
`

func printHelp() {
	fmt.Print(helpText)
}

func printVersion() {
	fmt.Printf("Focusboard %s (go %s)\n", version, runtime.Version())
	for _, detail := range []struct{ label, value string }{
		{"commit", commit},
		{"built", buildDate},
	} {
		if detail.value != "unknown" {
			fmt.Printf("  %s: %s\n", detail.label, detail.value)
		}
	}
}

func runConfigCommand(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "show":
		return runConfigShow()
	case "check":
		return runConfigCheck()
	case "path":
		return runConfigPath()
	}
	return fmt.Errorf("unknown config command: %s (use check, show, or path)", sub)
}

func runConfigCheck() error {
	fmt.Println("Checking Focusboard configuration...")
	fmt.Println()

	home, _ := os.UserHomeDir()
	fmt.Println("Configuration files:")
	reportConfigFile("User config", filepath.Join(home, ".focusboard", "config.yaml"))
	reportConfigFile("Project config", ".focusboard/config.yaml")
	fmt.Println()

	cfg, err := loadConfigFn()
	if err != nil {
		return withExitCode(err, exitCodeConfig)
	}

	fmt.Println("Advisor:")
	switch {
	case cfg.Advisor.Enabled && strings.TrimSpace(cfg.Advisor.APIKey) != "":
		fmt.Printf("  ✓ enabled (model %s)\n", cfg.Advisor.Model)
	case cfg.Advisor.Enabled:
		fmt.Println("  - enabled but no API key; running on the deterministic detector only")
	default:
		fmt.Println("  - disabled")
	}
	fmt.Println()

	if warnings := cfg.ValidationWarnings(); len(warnings) > 0 {
		fmt.Println("Warnings:")
		for _, w := range warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
		fmt.Println()
	}

	fmt.Println("✓ Configuration is valid")
	return nil
}

func reportConfigFile(label, path string) {
	marker, note := "-", " (not found)"
	if _, err := os.Stat(path); err == nil {
		marker, note = "✓", ""
	}
	fmt.Printf("  %s %-15s %s%s\n", marker, label+":", path, note)
}

func runConfigShow() error {
	cfg, err := loadConfigFn()
	if err != nil {
		return withExitCode(fmt.Errorf("load config: %w", err), exitCodeConfig)
	}

	fmt.Println("Current configuration:")
	fmt.Println()
	fmt.Println("Advisor:")
	fmt.Printf("  Enabled: %v\n", cfg.Advisor.Enabled)
	fmt.Printf("  Model:   %s\n", cfg.Advisor.Model)
	fmt.Println()
	fmt.Println("Paths:")
	fmt.Printf("  State:     %s\n", cfg.State.Path)
	fmt.Printf("  Skillbook: %s\n", cfg.Skillbook.Path)
	fmt.Printf("  Logs:      %s\n", cfg.Logging.Dir)
	fmt.Println()
	fmt.Println("Bus:")
	fmt.Printf("  Driver: %s\n", cfg.Bus.Driver)
	fmt.Println()
	fmt.Println("Server:")
	fmt.Printf("  Enabled: %v\n", cfg.Server.Enabled)
	fmt.Printf("  Bind:    %s\n", cfg.Server.Bind)
	return nil
}

func runConfigPath() error {
	home, _ := os.UserHomeDir()
	fmt.Println("Configuration file locations:")
	for _, loc := range []struct{ label, path string }{
		{"User", filepath.Join(home, ".focusboard", "config.yaml")},
		{"Project", ".focusboard/config.yaml"},
		{"Env", filepath.Join(home, ".focusboard", "config.env")},
	} {
		fmt.Printf("  %-8s %s\n", loc.label+":", loc.path)
	}
	return nil
}
