package goThreeDS

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// IntegrationTimeout is the default bound on challenge SDK setup.
const IntegrationTimeout = 60 * time.Second

var (
	errInvalidScheme = errors.New("scheme must be http or https")
	errMissingHost   = errors.New("host is required")
)

// Config is the complete configuration of a Session.
//
// Config values are copied by Builder.WithConfig and treated as immutable
// after Build.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	SDK       SDKConfig       `yaml:"sdk"`
	Legacy    LegacyConfig    `yaml:"legacy"`
	JWT       JWTConfig       `yaml:"jwt"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Handoff   HandoffConfig   `yaml:"handoff"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// Version selects the challenge strategy.
	Version StrategyVersion `yaml:"version"`
}

// StrategyVersion is the challenge protocol generation.
type StrategyVersion int

const (
	// VersionLegacy drives the challenge through a bank frame and the message bus.
	VersionLegacy StrategyVersion = 1
	// VersionModern drives the challenge through the external challenge SDK.
	VersionModern StrategyVersion = 2
)

/*
====================================
GATEWAY CONFIG
====================================
*/

// Environment selects sandbox or production endpoints.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

// GatewayConfig configures the shipped HTTP transport.
type GatewayConfig struct {
	Environment Environment `yaml:"environment"`
	// BaseURL optionally overrides the client API URL derived from Environment.
	BaseURL            string        `yaml:"base_url"`
	AuthorizationToken string        `yaml:"authorization_token"`
	APIVersion         string        `yaml:"api_version"`
	Timeout            time.Duration `yaml:"timeout"`
}

// DefaultBaseURL returns the client API URL for the configured environment.
func (c GatewayConfig) DefaultBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == EnvProduction {
		return "https://api.braintreegateway.com/merchants/client_api/v1/"
	}
	return "https://api.sandbox.braintreegateway.com/merchants/client_api/v1/"
}

/*
====================================
SDK CONFIG
====================================
*/

// SDKConfig configures the modern strategy's challenge SDK.
type SDKConfig struct {
	// ScriptURL overrides the script derived from Gateway.Environment.
	ScriptURL    string        `yaml:"script_url"`
	SetupTimeout time.Duration `yaml:"setup_timeout"`
	// SetupJWT is the token passed to the SDK's init setup. When empty and a
	// JWT key is configured, a token is minted per session.
	SetupJWT string `yaml:"setup_jwt"`
	LogLevel string `yaml:"log_level"`
}

func (c Config) sdkScriptURL() string {
	if c.SDK.ScriptURL != "" {
		return c.SDK.ScriptURL
	}
	if c.Gateway.Environment == EnvProduction {
		return ProductionSDKScriptURL
	}
	return SandboxSDKScriptURL
}

/*
====================================
LEGACY CONFIG
====================================
*/

// LegacyConfig configures the bank frame flow.
type LegacyConfig struct {
	// AssetsURL serves the bank frame and the completion page.
	AssetsURL string `yaml:"assets_url"`
	FrameName string `yaml:"frame_name"`
	// AllowedOrigins lists origins trusted on the message bus. When empty,
	// only the origin of AssetsURL is trusted.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ParentURL is forwarded to the bank frame so it can address the page.
	ParentURL string `yaml:"parent_url"`
	// SoftDeclineFallback resolves an unsuccessful challenge with the
	// pre-challenge reference when liability shift is still possible.
	SoftDeclineFallback bool `yaml:"soft_decline_fallback"`
	// LibraryVersion is embedded in the completion URL.
	LibraryVersion string `yaml:"library_version"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures minting of SDK setup tokens and verification of
// signed validation responses.
type JWTConfig struct {
	SigningMethod string `yaml:"signing_method"`
	// Key is the shared API key for hs256.
	Key            string        `yaml:"key"`
	PrivateKey     string        `yaml:"private_key"`
	PublicKey      string        `yaml:"public_key"`
	KeyID          string        `yaml:"key_id"`
	Issuer         string        `yaml:"issuer"`
	OrgUnitID      string        `yaml:"org_unit_id"`
	ResponseIssuer string        `yaml:"response_issuer"`
	TTL            time.Duration `yaml:"ttl"`
	Leeway         time.Duration `yaml:"leeway"`
	// VerifyResponses checks the signature of validation tokens locally
	// before they are exchanged with the gateway.
	VerifyResponses bool `yaml:"verify_responses"`
}

func (c JWTConfig) configured() bool {
	return c.Key != "" || c.PrivateKey != "" || c.PublicKey != ""
}

/*
====================================
EVENTS / METRICS CONFIG
====================================
*/

// EventsConfig configures the asynchronous analytics event dispatcher.
type EventsConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig configures in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
HANDOFF / RATE LIMIT CONFIG
====================================
*/

// HandoffConfig configures Redis storage of server-side lookups.
type HandoffConfig struct {
	RedisPrefix string        `yaml:"redis_prefix"`
	TTL         time.Duration `yaml:"ttl"`
}

// RateLimitConfig bounds lookups per payment method reference.
type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled"`
	RedisPrefix string        `yaml:"redis_prefix"`
	MaxLookups  int           `yaml:"max_lookups"`
	Window      time.Duration `yaml:"window"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: modern strategy,
// sandbox endpoints, 60s SDK setup timeout, soft-decline fallback on.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Environment: EnvSandbox,
			APIVersion:  "2018-05-10",
			Timeout:     30 * time.Second,
		},
		SDK: SDKConfig{
			SetupTimeout: IntegrationTimeout,
		},
		Legacy: LegacyConfig{
			AssetsURL:           "https://assets.braintreegateway.com",
			FrameName:           "braintreethreedsecurelanding",
			SoftDeclineFallback: true,
			LibraryVersion:      "3.0.0",
		},
		JWT: JWTConfig{
			SigningMethod: "hs256",
			TTL:           10 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Handoff: HandoffConfig{
			RedisPrefix: "3dsh",
			TTL:         10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:     false,
			RedisPrefix: "3dsrl",
			MaxLookups:  5,
			Window:      10 * time.Minute,
		},
		Version: VersionModern,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Legacy.AllowedOrigins != nil {
		out.Legacy.AllowedOrigins = append([]string(nil), cfg.Legacy.AllowedOrigins...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting as an ErrInvalidConfig.
func (c *Config) Validate() error {
	switch c.Version {
	case VersionLegacy, VersionModern:
	default:
		return invalidConfig("Version must be 1 or 2, got %d", c.Version)
	}

	// Gateway
	switch c.Gateway.Environment {
	case EnvSandbox, EnvProduction:
	default:
		return invalidConfig("Gateway Environment must be %q or %q", EnvSandbox, EnvProduction)
	}
	if c.Gateway.BaseURL != "" {
		if err := validateURL(c.Gateway.BaseURL); err != nil {
			return invalidConfig("Gateway BaseURL is invalid: %v", err)
		}
	}
	if c.Gateway.Timeout < 0 {
		return invalidConfig("Gateway Timeout must be >= 0")
	}

	// SDK
	if c.SDK.SetupTimeout <= 0 {
		return invalidConfig("SDK SetupTimeout must be > 0")
	}
	if c.SDK.ScriptURL != "" {
		if err := validateURL(c.SDK.ScriptURL); err != nil {
			return invalidConfig("SDK ScriptURL is invalid: %v", err)
		}
	}

	// Legacy
	if c.Version == VersionLegacy {
		if err := validateURL(c.Legacy.AssetsURL); err != nil {
			return invalidConfig("Legacy AssetsURL is invalid: %v", err)
		}
		if strings.TrimSpace(c.Legacy.FrameName) == "" {
			return invalidConfig("Legacy FrameName must not be empty")
		}
	}

	// JWT
	if c.JWT.configured() {
		if c.JWT.TTL <= 0 {
			return invalidConfig("JWT TTL must be > 0 when a key is configured")
		}
		if c.JWT.Issuer == "" || c.JWT.OrgUnitID == "" {
			return invalidConfig("JWT Issuer and OrgUnitID are required when a key is configured")
		}
	}
	if c.JWT.VerifyResponses && !c.JWT.configured() {
		return invalidConfig("JWT VerifyResponses requires a verification key")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return invalidConfig("Events BufferSize must be > 0 when events are enabled")
	}

	// Handoff
	if c.Handoff.TTL <= 0 {
		return invalidConfig("Handoff TTL must be > 0")
	}
	if c.Handoff.RedisPrefix == "" {
		return invalidConfig("Handoff RedisPrefix must not be empty")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxLookups <= 0 {
			return invalidConfig("RateLimit MaxLookups must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return invalidConfig("RateLimit Window must be > 0")
		}
		if c.RateLimit.RedisPrefix == "" {
			return invalidConfig("RateLimit RedisPrefix must not be empty")
		}
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errInvalidScheme
	}
	if u.Host == "" {
		return errMissingHost
	}
	return nil
}

// originOf returns scheme://host of raw, or "" when raw is not a URL.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
