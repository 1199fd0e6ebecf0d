package config

import "testing"

func TestMergeConfigsPreservesBooleanDefaults(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Advisor: AdvisorConfig{
			Model: "custom-model",
		},
	}
	raw := map[string]any{
		"advisor": map[string]any{
			"model": "custom-model",
		},
	}

	mergeConfigs(base, override, raw)

	if !base.Advisor.Enabled {
		t.Fatalf("advisor enabled flag should remain true when not overridden")
	}
	if !base.Server.RequireToken {
		t.Fatalf("server require_token flag should remain true when not overridden")
	}
	if base.Advisor.Model != "custom-model" {
		t.Fatalf("expected advisor model to be overridden")
	}
}

func TestMergeConfigsRespectsBooleanOverrides(t *testing.T) {
	base := DefaultConfig()
	override := &Config{}
	override.Advisor.Enabled = false
	raw := map[string]any{
		"advisor": map[string]any{
			"enabled": false,
		},
	}

	mergeConfigs(base, override, raw)

	if base.Advisor.Enabled {
		t.Fatalf("expected advisor enabled flag to update when override is explicit")
	}
}

func TestMergeConfigsHandlesZeroTemperature(t *testing.T) {
	base := DefaultConfig()
	override := &Config{}
	override.Advisor.Temperature = 0
	raw := map[string]any{
		"advisor": map[string]any{
			"temperature": 0,
		},
	}

	mergeConfigs(base, override, raw)

	if base.Advisor.Temperature != 0 {
		t.Fatalf("expected explicit zero temperature to survive the merge, got %v", base.Advisor.Temperature)
	}
}

func TestMergeConfigsCopiesAllowedOrigins(t *testing.T) {
	base := DefaultConfig()
	override := &Config{}
	override.Server.AllowedOrigins = []string{"http://localhost:3000"}
	raw := map[string]any{
		"server": map[string]any{
			"allowed_origins": []any{"http://localhost:3000"},
		},
	}

	mergeConfigs(base, override, raw)

	if len(base.Server.AllowedOrigins) != 1 || base.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("expected allowed origins to merge, got %v", base.Server.AllowedOrigins)
	}

	// Mutating the override slice should not affect the merged config.
	override.Server.AllowedOrigins[0] = "mutated"
	if base.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("merged origins should be a copy, got %v", base.Server.AllowedOrigins)
	}
}

func TestFieldSet(t *testing.T) {
	raw := map[string]any{
		"advisor": map[string]any{
			"enabled": false,
			"nested":  map[string]any{"deep": true},
		},
	}

	tests := []struct {
		name string
		path []string
		want bool
	}{
		{"present top-level", []string{"advisor"}, true},
		{"present leaf", []string{"advisor", "enabled"}, true},
		{"present deep", []string{"advisor", "nested", "deep"}, true},
		{"absent leaf", []string{"advisor", "missing"}, false},
		{"absent root", []string{"session"}, false},
		{"empty path", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fieldSet(raw, tt.path...); got != tt.want {
				t.Errorf("fieldSet(%v) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
