package config

import (
	"testing"
	"time"
)

// TestDefaultConfig tests the shipped defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != "8080" {
		t.Errorf("server defaults = %s:%s", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Models.Cheap == "" || cfg.Models.Strong == "" {
		t.Error("model tiers must have defaults")
	}
	if cfg.Queue.BatchWidth != 3 {
		t.Errorf("BatchWidth = %d, want 3", cfg.Queue.BatchWidth)
	}

	or, ok := cfg.LLMProviders["openrouter"]
	if !ok {
		t.Fatal("openrouter provider missing from defaults")
	}
	if !or.Enabled {
		t.Error("openrouter should be enabled by default")
	}
	if or.APIKey != "${OPENROUTER_API_KEY}" {
		t.Errorf("APIKey = %q, want unresolved env reference", or.APIKey)
	}
}

// TestQueueConfig_Cooldown tests fractional-second conversion.
func TestQueueConfig_Cooldown(t *testing.T) {
	q := QueueConfig{CooldownSeconds: 1.5}
	if got := q.Cooldown(); got != 1500*time.Millisecond {
		t.Errorf("Cooldown() = %v, want 1.5s", got)
	}

	q = QueueConfig{CooldownSeconds: 0}
	if got := q.Cooldown(); got != 0 {
		t.Errorf("Cooldown() = %v, want 0", got)
	}
}

// TestResolveEnvVars tests ${ENV_VAR} expansion.
func TestResolveEnvVars(t *testing.T) {
	t.Setenv("CURATOR_TEST_KEY", "sk-secret")
	t.Setenv("CURATOR_TEST_HOST", "api.example.com")

	tests := []struct {
		in   string
		want string
	}{
		{"${CURATOR_TEST_KEY}", "sk-secret"},
		{"prefix-${CURATOR_TEST_KEY}", "prefix-sk-secret"},
		{"https://${CURATOR_TEST_HOST}/v1", "https://api.example.com/v1"},
		{"${CURATOR_TEST_UNSET_VAR}", ""},
		{"no-references", "no-references"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ResolveEnvVars(tt.in); got != tt.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestToProviderRegistryConfig tests API key resolution during conversion.
func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("CURATOR_TEST_KEY", "sk-resolved")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:    "openrouter",
				Model:   "some/model",
				APIKey:  "${CURATOR_TEST_KEY}",
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				APIKey:  "literal-key",
				Enabled: false,
			},
		},
	}

	rc := cfg.ToProviderRegistryConfig()
	if len(rc.LLMProviders) != 2 {
		t.Fatalf("providers = %d, want 2 (registry decides on enablement)", len(rc.LLMProviders))
	}
	if rc.LLMProviders["openrouter"].APIKey != "sk-resolved" {
		t.Errorf("openrouter APIKey = %q, want resolved", rc.LLMProviders["openrouter"].APIKey)
	}
	if rc.LLMProviders["openai"].APIKey != "literal-key" {
		t.Errorf("openai APIKey = %q, want passed through", rc.LLMProviders["openai"].APIKey)
	}
	if rc.LLMProviders["openai"].Enabled {
		t.Error("disabled provider flipped to enabled")
	}

	// The source config keeps the unresolved reference.
	if cfg.LLMProviders["openrouter"].APIKey != "${CURATOR_TEST_KEY}" {
		t.Error("conversion mutated the source config")
	}
}
