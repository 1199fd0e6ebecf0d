// Package config loads Focusboard configuration with the precedence
// defaults < user config < project config < environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultAdvisorBaseURL = "https://api.groq.com/openai/v1"
	defaultAdvisorModel   = "llama3-70b-8192"

	// MinTokenLength is the minimum recommended length for API authentication tokens
	MinTokenLength = 32
)

// Defaults shared between construction, validation and the config
// check command.
const (
	DefaultAdvisorTimeout     = 5 * time.Second
	DefaultAdvisorMaxTokens   = 256
	DefaultAdvisorTemperature = 0.1
	DefaultAdvisorRPM         = 30
	DefaultAdvisorBurst       = 5
	DefaultPromptTokenBudget  = 2048
	DefaultPendingTTL         = 5 * time.Minute
	DefaultMaxClarifyRounds   = 3
	DefaultServerBind         = "127.0.0.1:4499"
	DefaultBusDriver          = "memory"
	DefaultSubjectPrefix      = "focusboard"
)

// Config represents the complete Focusboard configuration
type Config struct {
	Advisor   AdvisorConfig   `yaml:"advisor"`
	State     StateConfig     `yaml:"state"`
	Skillbook SkillbookConfig `yaml:"skillbook"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Bus       BusConfig       `yaml:"bus"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// AdvisorConfig controls the advisory model client. The advisor is
// optional: with no API key the pipeline runs on the deterministic
// detector alone.
type AdvisorConfig struct {
	Enabled        bool    `yaml:"enabled"`
	APIKey         string  `yaml:"api_key"` // Can be set here or via GROQ_API_KEY
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	// RequestsPerMinute and Burst feed the client-side rate limiter.
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
	// PromptTokenBudget caps the tokens spent on a single suggestion
	// prompt; longer inputs are truncated before sending.
	PromptTokenBudget int `yaml:"prompt_token_budget"`
}

// Timeout returns the advisory call timeout as a duration.
func (a AdvisorConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return DefaultAdvisorTimeout
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// StateConfig locates the user data document.
type StateConfig struct {
	Path string `yaml:"path"`
	// WatchForChanges reloads the document when another process edits it.
	WatchForChanges bool `yaml:"watch_for_changes"`
}

// SkillbookConfig locates the pattern-learning database.
type SkillbookConfig struct {
	Path string `yaml:"path"`
	// HistoryLimit bounds how many raw queries are retained.
	HistoryLimit int `yaml:"history_limit"`
}

// SessionConfig controls pending-clarification behavior.
type SessionConfig struct {
	// PendingTTLSeconds evicts stale clarification state after this
	// many seconds of inactivity.
	PendingTTLSeconds int `yaml:"pending_ttl_seconds"`
	// MaxClarifyRounds caps repeated ambiguous replies before the
	// pipeline gives up on the pending entry and starts fresh.
	MaxClarifyRounds int `yaml:"max_clarify_rounds"`
}

// PendingTTL returns the pending entry lifetime as a duration.
func (s SessionConfig) PendingTTL() time.Duration {
	if s.PendingTTLSeconds <= 0 {
		return DefaultPendingTTL
	}
	return time.Duration(s.PendingTTLSeconds) * time.Second
}

// LoggingConfig controls structured event logging.
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// ServerConfig controls the local HTTP API.
type ServerConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Bind           string   `yaml:"bind"`
	AuthToken      string   `yaml:"auth_token"`
	RequireToken   bool     `yaml:"require_token"`
	PublicMetrics  bool     `yaml:"public_metrics"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BusConfig selects the message bus backing mutation events.
type BusConfig struct {
	// Driver is "memory" for in-process delivery or "nats" for an
	// external broker.
	Driver        string `yaml:"driver"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// TracingConfig toggles OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultDataDir returns the per-user Focusboard directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		return ".focusboard"
	}
	return filepath.Join(home, ".focusboard")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Advisor: AdvisorConfig{
			Enabled:           true,
			BaseURL:           defaultAdvisorBaseURL,
			Model:             defaultAdvisorModel,
			TimeoutSeconds:    int(DefaultAdvisorTimeout / time.Second),
			MaxTokens:         DefaultAdvisorMaxTokens,
			Temperature:       DefaultAdvisorTemperature,
			RequestsPerMinute: DefaultAdvisorRPM,
			Burst:             DefaultAdvisorBurst,
			PromptTokenBudget: DefaultPromptTokenBudget,
		},
		State: StateConfig{
			Path: filepath.Join(dataDir, "data.json"),
		},
		Skillbook: SkillbookConfig{
			Path:         filepath.Join(dataDir, "skillbook.db"),
			HistoryLimit: 500,
		},
		Session: SessionConfig{
			PendingTTLSeconds: int(DefaultPendingTTL / time.Second),
			MaxClarifyRounds:  DefaultMaxClarifyRounds,
		},
		Logging: LoggingConfig{
			Dir:   filepath.Join(dataDir, "logs"),
			Level: "info",
		},
		Server: ServerConfig{
			Enabled:      false,
			Bind:         DefaultServerBind,
			RequireToken: true,
		},
		Bus: BusConfig{
			Driver:        DefaultBusDriver,
			SubjectPrefix: DefaultSubjectPrefix,
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// Load assembles configuration from every standard source, lowest
// precedence first: built-in defaults, the user file, the project
// file, then environment overrides.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	// Load user config (~/.focusboard/config.yaml)
	home, err := os.UserHomeDir()
	if err != nil {
		// Minimal environments may still carry HOME.
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".focusboard", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	// Load project config (./.focusboard/config.yaml)
	projectConfigPath := filepath.Join(".", ".focusboard", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyEnvOverrides(cfg, configEnv)

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadFromPath reads exactly one config file, skipping the standard
// locations but still honoring environment overrides and validation.
// Backs the --config flag.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	applyEnvOverrides(cfg, configEnv)

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverridesForTest runs the override pass on its own so tests
// can exercise it without touching the filesystem.
func ApplyEnvOverridesForTest(cfg *Config) {
	applyEnvOverrides(cfg, nil)
}

// applyEnvOverrides lets the process environment win over anything a
// file set.
func applyEnvOverrides(cfg *Config, configEnv map[string]string) {
	// Advisor credentials. GROQ_API_KEY is the conventional variable;
	// the config.env sidecar is consulted when the environment is bare.
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Advisor.APIKey = v
	} else if cfg.Advisor.APIKey == "" {
		if v := configEnv["GROQ_API_KEY"]; v != "" {
			cfg.Advisor.APIKey = v
		}
	}
	if v := os.Getenv("FOCUSBOARD_ADVISOR_BASE_URL"); v != "" {
		cfg.Advisor.BaseURL = v
	}
	if v := os.Getenv("FOCUSBOARD_ADVISOR_MODEL"); v != "" {
		cfg.Advisor.Model = v
	}
	if val, ok := envBool("FOCUSBOARD_ADVISOR_ENABLED"); ok {
		cfg.Advisor.Enabled = val
	} else if val, ok := envBool("FOCUSBOARD_ADVISOR_DISABLED"); ok && val {
		cfg.Advisor.Enabled = false
	}

	// Paths
	if v := os.Getenv("FOCUSBOARD_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("FOCUSBOARD_SKILLBOOK_PATH"); v != "" {
		cfg.Skillbook.Path = v
	}
	if v := os.Getenv("FOCUSBOARD_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("FOCUSBOARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Server
	if val, ok := envBool("FOCUSBOARD_SERVER_ENABLED"); ok {
		cfg.Server.Enabled = val
	}
	if v := os.Getenv("FOCUSBOARD_SERVER_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("FOCUSBOARD_SERVER_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}

	// Bus
	if v := os.Getenv("FOCUSBOARD_BUS_DRIVER"); v != "" {
		cfg.Bus.Driver = v
	}
	if v := os.Getenv("FOCUSBOARD_NATS_URL"); v != "" {
		cfg.Bus.URL = v
		cfg.Bus.Driver = "nats"
	} else if v := os.Getenv("NATS_URL"); v != "" && cfg.Bus.URL == "" {
		cfg.Bus.URL = v
	}

	if val, ok := envBool("FOCUSBOARD_TRACING_ENABLED"); ok {
		cfg.Tracing.Enabled = val
	}
}

// Validate checks the configuration for hard errors.
func (c *Config) Validate() error {
	switch c.Bus.Driver {
	case "memory", "nats":
	default:
		return fmt.Errorf("unknown bus driver %q (want memory or nats)", c.Bus.Driver)
	}
	if c.Bus.Driver == "nats" && strings.TrimSpace(c.Bus.URL) == "" {
		return fmt.Errorf("bus driver nats requires a url")
	}

	if c.Session.MaxClarifyRounds < 1 {
		return fmt.Errorf("session.max_clarify_rounds must be at least 1, got %d", c.Session.MaxClarifyRounds)
	}
	if c.Session.PendingTTLSeconds < 0 {
		return fmt.Errorf("session.pending_ttl_seconds cannot be negative, got %d", c.Session.PendingTTLSeconds)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
			return fmt.Errorf("invalid server bind address %q: %w", c.Server.Bind, err)
		}
	}

	if c.Advisor.Temperature < 0 || c.Advisor.Temperature > 2 {
		return fmt.Errorf("advisor.temperature must be in [0, 2], got %v", c.Advisor.Temperature)
	}

	return nil
}

// ValidationWarnings returns non-fatal configuration concerns.
func (c *Config) ValidationWarnings() []string {
	var warnings []string

	if c.Advisor.Enabled && strings.TrimSpace(c.Advisor.APIKey) == "" {
		warnings = append(warnings, "advisor is enabled but no API key is set; suggestions will be skipped (set GROQ_API_KEY)")
	}

	if c.Server.Enabled {
		if c.Server.RequireToken && len(c.Server.AuthToken) > 0 && len(c.Server.AuthToken) < MinTokenLength {
			warnings = append(warnings, fmt.Sprintf("server auth token is shorter than %d characters", MinTokenLength))
		}
		if !isLoopbackBindAddress(c.Server.Bind) {
			warnings = append(warnings, fmt.Sprintf("server bind %q is not loopback; the API will be reachable from the network", c.Server.Bind))
		}
	}

	return warnings
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func isLoopbackBindAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// loadConfigEnvVars reads KEY=VALUE pairs from ~/.focusboard/config.env
// for credentials that should not live in the YAML file.
func loadConfigEnvVars() map[string]string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil
	}

	path := filepath.Join(home, ".focusboard", "config.env")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	vars := make(map[string]string)
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key != "" {
			vars[key] = value
		}
	}
	return vars
}
