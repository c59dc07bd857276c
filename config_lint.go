package goThreeDS

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a LintWarning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one risky but valid setting reported by Config.Lint.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings for a configuration.
type LintResult []LintWarning

// Codes returns the warning codes in report order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an ErrInvalidConfig listing the warnings at or above min,
// or nil when there are none.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, w.Code+": "+w.Message)
	}
	return invalidConfig("lint %s: %s", min, strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but are likely mistakes for a
// live integration. It assumes c is valid.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	script := c.sdkScriptURL()
	switch {
	case c.Gateway.Environment == EnvProduction && script == SandboxSDKScriptURL:
		add("environment_mismatch", LintHigh, "production gateway with the sandbox SDK script")
	case c.Gateway.Environment == EnvSandbox && script == ProductionSDKScriptURL:
		add("environment_mismatch", LintHigh, "sandbox gateway with the production SDK script")
	}

	if c.Version == VersionModern {
		if c.SDK.SetupJWT == "" && !c.JWT.configured() {
			add("setup_token_missing", LintHigh, "SDK setup runs without a setup token; set SDK.SetupJWT or a JWT key")
		}
		if c.SDK.SetupJWT != "" && c.JWT.configured() {
			add("setup_token_ambiguous", LintWarn, "SDK.SetupJWT overrides tokens minted from the JWT key")
		}
		if c.SDK.SetupTimeout < 10*time.Second {
			add("setup_timeout_short", LintWarn, "SDK setup timeout %s is likely to expire on slow networks", c.SDK.SetupTimeout)
		}
	}
	if c.Version == VersionLegacy {
		add("legacy_strategy", LintInfo, "protocol version 1 is deprecated by card networks")
		if c.Legacy.SoftDeclineFallback {
			add("soft_decline_fallback", LintInfo, "failed challenges resolve when liability shift was possible")
		}
	}

	if c.Gateway.Environment == EnvProduction && c.JWT.configured() && !c.JWT.VerifyResponses {
		add("response_tokens_unverified", LintWarn, "validation tokens are exchanged without local verification")
	}
	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway %s exceeds one minute", c.JWT.Leeway)
	}
	if c.Gateway.Timeout == 0 {
		add("gateway_timeout_disabled", LintWarn, "gateway requests have no timeout")
	}
	if c.Events.Enabled && !c.Events.DropIfFull {
		add("events_blocking", LintWarn, "a slow event sink blocks verifications")
	}
	if !c.RateLimit.Enabled {
		add("rate_limit_disabled", LintInfo, "lookups are not limited per reference")
	}
	if c.Handoff.TTL > 30*time.Minute {
		add("handoff_ttl_long", LintWarn, "handoffs live for %s", c.Handoff.TTL)
	}

	return ws
}
