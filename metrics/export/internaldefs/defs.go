package internaldefs

import (
	goThreeDS "github.com/MrEthical07/goThreeDS"
)

// CounterDef maps a counter id onto its exported name.
type CounterDef struct {
	ID   goThreeDS.MetricID
	Name string
	Help string
}

// HistogramDef maps a histogram id onto its exported name.
type HistogramDef struct {
	ID   goThreeDS.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goThreeDS.MetricVerifyStarted, Name: "threeds_verify_started_total", Help: "Verifications that passed their preconditions."},
	{ID: goThreeDS.MetricVerifyCompleted, Name: "threeds_verify_completed_total", Help: "Verifications resolved with an outcome."},
	{ID: goThreeDS.MetricVerifyFailed, Name: "threeds_verify_failed_total", Help: "Verifications that failed after starting."},
	{ID: goThreeDS.MetricVerifyCanceled, Name: "threeds_verify_canceled_total", Help: "Verifications canceled by the merchant."},
	{ID: goThreeDS.MetricVerifyInProgressRejected, Name: "threeds_verify_in_progress_rejected_total", Help: "Verify calls rejected while another verification was active."},
	{ID: goThreeDS.MetricVerifyBlocked, Name: "threeds_verify_blocked_total", Help: "Verify calls rejected by a sticky SDK setup error."},
	{ID: goThreeDS.MetricLookupSuccess, Name: "threeds_lookup_success_total", Help: "Successful gateway lookups."},
	{ID: goThreeDS.MetricLookupNotFound, Name: "threeds_lookup_not_found_total", Help: "Lookups for a missing or consumed reference."},
	{ID: goThreeDS.MetricLookupValidationError, Name: "threeds_lookup_validation_error_total", Help: "Lookups rejected by gateway validation."},
	{ID: goThreeDS.MetricLookupError, Name: "threeds_lookup_error_total", Help: "Lookups failed for any other reason."},
	{ID: goThreeDS.MetricLookupRateLimited, Name: "threeds_lookup_rate_limited_total", Help: "Lookups denied by the lookup limiter."},
	{ID: goThreeDS.MetricChallengeRequired, Name: "threeds_challenge_required_total", Help: "Lookups that required an interactive challenge."},
	{ID: goThreeDS.MetricChallengeSucceeded, Name: "threeds_challenge_succeeded_total", Help: "Challenges resolved with an outcome."},
	{ID: goThreeDS.MetricChallengeFailed, Name: "threeds_challenge_failed_total", Help: "Challenges rejected."},
	{ID: goThreeDS.MetricSDKSetupSuccess, Name: "threeds_sdk_setup_success_total", Help: "Completed challenge SDK setups."},
	{ID: goThreeDS.MetricSDKSetupFailure, Name: "threeds_sdk_setup_failure_total", Help: "Failed challenge SDK setups."},
	{ID: goThreeDS.MetricSDKSetupTimeout, Name: "threeds_sdk_setup_timeout_total", Help: "Challenge SDK setups that timed out."},
	{ID: goThreeDS.MetricSDKScriptLoadFailure, Name: "threeds_sdk_script_load_failure_total", Help: "Challenge SDK script loads that failed."},
	{ID: goThreeDS.MetricEnrichmentFailure, Name: "threeds_enrichment_failure_total", Help: "Discarded best-effort lookup enrichments."},
	{ID: goThreeDS.MetricJWTExchangeFailure, Name: "threeds_jwt_exchange_failure_total", Help: "Failed validation token exchanges."},
	{ID: goThreeDS.MetricHandoffStored, Name: "threeds_handoff_stored_total", Help: "Server lookups stored for handoff."},
	{ID: goThreeDS.MetricHandoffResumed, Name: "threeds_handoff_resumed_total", Help: "Server lookups resumed from handoff."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goThreeDS.MetricLookupLatency, Name: "threeds_lookup_latency_seconds", Help: "Gateway lookup latency histogram."},
}

// HistogramBounds are the upper bounds of the eight latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix are the bounds in a form usable in instrument names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
