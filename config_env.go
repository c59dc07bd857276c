package goThreeDS

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnv returns DefaultConfig overridden by environment variables:
//
//	THREEDS_VERSION              – 1 (legacy) or 2 (modern)
//	THREEDS_ENV                  – "sandbox" (default) or "production"
//	THREEDS_GATEWAY_URL          – client API URL override
//	THREEDS_AUTHORIZATION        – client authorization token
//	THREEDS_API_VERSION          – gateway API version header
//	THREEDS_GATEWAY_TIMEOUT      – HTTP timeout, e.g. "30s"
//	THREEDS_SDK_SCRIPT_URL       – challenge SDK script override
//	THREEDS_SDK_SETUP_TIMEOUT    – SDK setup timeout, e.g. "60s"
//	THREEDS_SDK_SETUP_JWT        – pre-minted SDK setup token
//	THREEDS_JWT_KEY              – shared API key for minting setup tokens
//	THREEDS_JWT_ISSUER           – API identifier
//	THREEDS_JWT_ORG_UNIT_ID      – org unit id
//	THREEDS_JWT_VERIFY_RESPONSES – "true" to verify validation tokens locally
//	THREEDS_LEGACY_ASSETS_URL    – bank frame assets URL
//	THREEDS_LEGACY_PARENT_URL    – page URL forwarded to the bank frame
//	THREEDS_SOFT_DECLINE         – "false" disables the soft-decline fallback
//	THREEDS_EVENTS_ENABLED       – "true" enables analytics events
//	THREEDS_METRICS_ENABLED      – "true" enables counters and latency histograms
//	THREEDS_RATE_LIMIT_LOOKUPS   – lookups allowed per reference and window; enables the limiter
//
// Unset variables keep their defaults. A malformed value is an error.
func LoadConfigFromEnv() (Config, error) {
	return configFromEnv(defaultConfig(), os.LookupEnv)
}

// LoadConfigFromDotEnv loads variables from .env files into the process
// environment and then calls LoadConfigFromEnv. Missing files are ignored and
// variables already set in the process win.
func LoadConfigFromDotEnv(filenames ...string) (Config, error) {
	_ = godotenv.Load(filenames...)
	return LoadConfigFromEnv()
}

// LoadConfigFile reads a YAML configuration on top of DefaultConfig. Unknown
// keys are rejected. The result is validated.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfigYAML(data)
}

func parseConfigYAML(data []byte) (Config, error) {
	cfg := defaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, invalidConfig("parse YAML: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupEnvFunc func(string) (string, bool)

func configFromEnv(cfg Config, lookup lookupEnvFunc) (Config, error) {
	p := envParser{lookup: lookup}

	if v, ok := p.int("THREEDS_VERSION"); ok {
		cfg.Version = StrategyVersion(v)
	}
	if v, ok := p.str("THREEDS_ENV"); ok {
		cfg.Gateway.Environment = Environment(strings.ToLower(v))
	}
	p.setStr(&cfg.Gateway.BaseURL, "THREEDS_GATEWAY_URL")
	p.setStr(&cfg.Gateway.AuthorizationToken, "THREEDS_AUTHORIZATION")
	p.setStr(&cfg.Gateway.APIVersion, "THREEDS_API_VERSION")
	p.setDuration(&cfg.Gateway.Timeout, "THREEDS_GATEWAY_TIMEOUT")

	p.setStr(&cfg.SDK.ScriptURL, "THREEDS_SDK_SCRIPT_URL")
	p.setDuration(&cfg.SDK.SetupTimeout, "THREEDS_SDK_SETUP_TIMEOUT")
	p.setStr(&cfg.SDK.SetupJWT, "THREEDS_SDK_SETUP_JWT")

	p.setStr(&cfg.JWT.Key, "THREEDS_JWT_KEY")
	p.setStr(&cfg.JWT.Issuer, "THREEDS_JWT_ISSUER")
	p.setStr(&cfg.JWT.OrgUnitID, "THREEDS_JWT_ORG_UNIT_ID")
	p.setBool(&cfg.JWT.VerifyResponses, "THREEDS_JWT_VERIFY_RESPONSES")

	p.setStr(&cfg.Legacy.AssetsURL, "THREEDS_LEGACY_ASSETS_URL")
	p.setStr(&cfg.Legacy.ParentURL, "THREEDS_LEGACY_PARENT_URL")
	p.setBool(&cfg.Legacy.SoftDeclineFallback, "THREEDS_SOFT_DECLINE")

	p.setBool(&cfg.Events.Enabled, "THREEDS_EVENTS_ENABLED")
	if v, ok := p.bool("THREEDS_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = v
		cfg.Metrics.EnableLatencyHistograms = v
	}
	if v, ok := p.int("THREEDS_RATE_LIMIT_LOOKUPS"); ok {
		cfg.RateLimit.Enabled = v > 0
		cfg.RateLimit.MaxLookups = v
	}

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// envParser records the first malformed variable and ignores the rest.
type envParser struct {
	lookup lookupEnvFunc
	err    error
}

func (p *envParser) str(name string) (string, bool) {
	v, ok := p.lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *envParser) setStr(dst *string, name string) {
	if v, ok := p.str(name); ok {
		*dst = v
	}
}

func (p *envParser) int(name string) (int, bool) {
	v, ok := p.str(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, err)
		return 0, false
	}
	return n, true
}

func (p *envParser) bool(name string) (bool, bool) {
	v, ok := p.str(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, err)
		return false, false
	}
	return b, true
}

func (p *envParser) setBool(dst *bool, name string) {
	if v, ok := p.bool(name); ok {
		*dst = v
	}
}

func (p *envParser) setDuration(dst *time.Duration, name string) {
	v, ok := p.str(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(name, err)
		return
	}
	*dst = d
}

func (p *envParser) fail(name string, err error) {
	if p.err == nil {
		p.err = invalidConfig("%s: %v", name, err)
	}
}
