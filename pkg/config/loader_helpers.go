package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadAndMerge folds one YAML file into cfg, leaving fields the file
// does not mention alone.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Zero values only win when the
// raw document actually carries the key, so explicit "enabled: false"
// is distinguishable from an absent field.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	if fieldSet(raw, "advisor", "enabled") {
		base.Advisor.Enabled = override.Advisor.Enabled
	}
	if override.Advisor.APIKey != "" {
		base.Advisor.APIKey = override.Advisor.APIKey
	}
	if override.Advisor.BaseURL != "" {
		base.Advisor.BaseURL = override.Advisor.BaseURL
	}
	if override.Advisor.Model != "" {
		base.Advisor.Model = override.Advisor.Model
	}
	if override.Advisor.TimeoutSeconds != 0 {
		base.Advisor.TimeoutSeconds = override.Advisor.TimeoutSeconds
	}
	if override.Advisor.MaxTokens != 0 {
		base.Advisor.MaxTokens = override.Advisor.MaxTokens
	}
	if fieldSet(raw, "advisor", "temperature") {
		base.Advisor.Temperature = override.Advisor.Temperature
	}
	if override.Advisor.RequestsPerMinute != 0 {
		base.Advisor.RequestsPerMinute = override.Advisor.RequestsPerMinute
	}
	if override.Advisor.Burst != 0 {
		base.Advisor.Burst = override.Advisor.Burst
	}
	if override.Advisor.PromptTokenBudget != 0 {
		base.Advisor.PromptTokenBudget = override.Advisor.PromptTokenBudget
	}

	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}
	if fieldSet(raw, "state", "watch_for_changes") {
		base.State.WatchForChanges = override.State.WatchForChanges
	}

	if override.Skillbook.Path != "" {
		base.Skillbook.Path = override.Skillbook.Path
	}
	if override.Skillbook.HistoryLimit != 0 {
		base.Skillbook.HistoryLimit = override.Skillbook.HistoryLimit
	}

	if fieldSet(raw, "session", "pending_ttl_seconds") {
		base.Session.PendingTTLSeconds = override.Session.PendingTTLSeconds
	}
	if override.Session.MaxClarifyRounds != 0 {
		base.Session.MaxClarifyRounds = override.Session.MaxClarifyRounds
	}

	if override.Logging.Dir != "" {
		base.Logging.Dir = override.Logging.Dir
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if fieldSet(raw, "server", "enabled") {
		base.Server.Enabled = override.Server.Enabled
	}
	if override.Server.Bind != "" {
		base.Server.Bind = override.Server.Bind
	}
	if override.Server.AuthToken != "" {
		base.Server.AuthToken = override.Server.AuthToken
	}
	if fieldSet(raw, "server", "require_token") {
		base.Server.RequireToken = override.Server.RequireToken
	}
	if fieldSet(raw, "server", "public_metrics") {
		base.Server.PublicMetrics = override.Server.PublicMetrics
	}
	if len(override.Server.AllowedOrigins) > 0 {
		base.Server.AllowedOrigins = append([]string{}, override.Server.AllowedOrigins...)
	}

	if override.Bus.Driver != "" {
		base.Bus.Driver = override.Bus.Driver
	}
	if override.Bus.URL != "" {
		base.Bus.URL = override.Bus.URL
	}
	if override.Bus.SubjectPrefix != "" {
		base.Bus.SubjectPrefix = override.Bus.SubjectPrefix
	}

	if fieldSet(raw, "tracing", "enabled") {
		base.Tracing.Enabled = override.Tracing.Enabled
	}
}

func fieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}
