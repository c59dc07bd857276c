package goThreeDS

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.Version != VersionModern {
		t.Fatalf("expected modern strategy by default, got %d", cfg.Version)
	}
	if cfg.SDK.SetupTimeout != IntegrationTimeout {
		t.Fatalf("expected %s setup timeout, got %s", IntegrationTimeout, cfg.SDK.SetupTimeout)
	}
	if !cfg.Legacy.SoftDeclineFallback {
		t.Fatal("expected soft-decline fallback enabled by default")
	}
}

func TestConfigValidateTable(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "legacy version valid",
			mutate:    func(c *Config) { c.Version = VersionLegacy },
			wantValid: true,
		},
		{
			name:      "unknown version invalid",
			mutate:    func(c *Config) { c.Version = 3 },
			wantValid: false,
		},
		{
			name:      "production environment valid",
			mutate:    func(c *Config) { c.Gateway.Environment = EnvProduction },
			wantValid: true,
		},
		{
			name:      "unknown environment invalid",
			mutate:    func(c *Config) { c.Gateway.Environment = "staging" },
			wantValid: false,
		},
		{
			name:      "gateway url without scheme invalid",
			mutate:    func(c *Config) { c.Gateway.BaseURL = "gateway.example/api" },
			wantValid: false,
		},
		{
			name:      "negative gateway timeout invalid",
			mutate:    func(c *Config) { c.Gateway.Timeout = -time.Second },
			wantValid: false,
		},
		{
			name:      "zero sdk setup timeout invalid",
			mutate:    func(c *Config) { c.SDK.SetupTimeout = 0 },
			wantValid: false,
		},
		{
			name:      "sdk script url ftp invalid",
			mutate:    func(c *Config) { c.SDK.ScriptURL = "ftp://sdk.example/songbird.js" },
			wantValid: false,
		},
		{
			name: "legacy assets url missing host invalid",
			mutate: func(c *Config) {
				c.Version = VersionLegacy
				c.Legacy.AssetsURL = "https://"
			},
			wantValid: false,
		},
		{
			name: "legacy blank frame name invalid",
			mutate: func(c *Config) {
				c.Version = VersionLegacy
				c.Legacy.FrameName = "  "
			},
			wantValid: false,
		},
		{
			name: "jwt key with issuer valid",
			mutate: func(c *Config) {
				c.JWT.Key = "secret"
				c.JWT.Issuer = "api-id"
				c.JWT.OrgUnitID = "org-unit"
			},
			wantValid: true,
		},
		{
			name:      "jwt key without issuer invalid",
			mutate:    func(c *Config) { c.JWT.Key = "secret" },
			wantValid: false,
		},
		{
			name:      "verify responses without key invalid",
			mutate:    func(c *Config) { c.JWT.VerifyResponses = true },
			wantValid: false,
		},
		{
			name: "events without buffer invalid",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name:      "zero handoff ttl invalid",
			mutate:    func(c *Config) { c.Handoff.TTL = 0 },
			wantValid: false,
		},
		{
			name: "rate limit zero window invalid",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Window = 0
			},
			wantValid: false,
		},
		{
			name: "rate limit valid",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.MaxLookups = 3
			},
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid {
				if err == nil {
					t.Fatal("expected invalid config, got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestCloneConfigCopiesOrigins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Legacy.AllowedOrigins = []string{"https://a.example"}

	clone := cloneConfig(cfg)
	clone.Legacy.AllowedOrigins[0] = "https://b.example"

	if cfg.Legacy.AllowedOrigins[0] != "https://a.example" {
		t.Fatal("clone shares AllowedOrigins with the original")
	}
}

func TestSDKScriptURLFollowsEnvironment(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.sdkScriptURL(); got != SandboxSDKScriptURL {
		t.Fatalf("expected sandbox script, got %s", got)
	}
	cfg.Gateway.Environment = EnvProduction
	if got := cfg.sdkScriptURL(); got != ProductionSDKScriptURL {
		t.Fatalf("expected production script, got %s", got)
	}
	cfg.SDK.ScriptURL = "https://cdn.example/sdk.js"
	if got := cfg.sdkScriptURL(); got != "https://cdn.example/sdk.js" {
		t.Fatalf("expected override, got %s", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		"THREEDS_VERSION":            "1",
		"THREEDS_ENV":                "Production",
		"THREEDS_SDK_SETUP_TIMEOUT":  "15s",
		"THREEDS_SOFT_DECLINE":       "false",
		"THREEDS_METRICS_ENABLED":    "true",
		"THREEDS_RATE_LIMIT_LOOKUPS": "4",
	}
	cfg, err := configFromEnv(defaultConfig(), func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("config from env: %v", err)
	}
	if cfg.Version != VersionLegacy || cfg.Gateway.Environment != EnvProduction {
		t.Fatalf("unexpected version/environment: %d %s", cfg.Version, cfg.Gateway.Environment)
	}
	if cfg.SDK.SetupTimeout != 15*time.Second {
		t.Fatalf("expected 15s setup timeout, got %s", cfg.SDK.SetupTimeout)
	}
	if cfg.Legacy.SoftDeclineFallback {
		t.Fatal("expected soft decline disabled")
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.EnableLatencyHistograms {
		t.Fatal("expected metrics enabled")
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.MaxLookups != 4 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected env config to validate, got %v", err)
	}
}

func TestConfigFromEnvRejectsMalformedValue(t *testing.T) {
	_, err := configFromEnv(defaultConfig(), func(k string) (string, bool) {
		if k == "THREEDS_SDK_SETUP_TIMEOUT" {
			return "soon", true
		}
		return "", false
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threeds.yaml")
	data := []byte(`
version: 1
gateway:
  environment: production
legacy:
  assets_url: https://assets.example
  allowed_origins:
    - https://assets.example
    - https://frames.example
handoff:
  ttl: 5m
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Version != VersionLegacy || cfg.Gateway.Environment != EnvProduction {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Legacy.AllowedOrigins) != 2 || cfg.Handoff.TTL != 5*time.Minute {
		t.Fatalf("unexpected legacy/handoff config: %+v %+v", cfg.Legacy, cfg.Handoff)
	}
	if cfg.Legacy.FrameName == "" || cfg.SDK.SetupTimeout != IntegrationTimeout {
		t.Fatal("expected unset keys to keep their defaults")
	}
}

func TestLoadConfigFileRejectsUnknownKeys(t *testing.T) {
	if _, err := parseConfigYAML([]byte("gateway:\n  enviroment: sandbox\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown key, got %v", err)
	}
}
