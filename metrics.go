package goThreeDS

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one verification counter or histogram.
type MetricID uint16

const (
	// MetricVerifyStarted counts Verify calls that passed their preconditions.
	MetricVerifyStarted MetricID = iota
	// MetricVerifyCompleted counts verifications that resolved with an outcome.
	MetricVerifyCompleted
	// MetricVerifyFailed counts verifications that ended with an error after starting.
	MetricVerifyFailed
	// MetricVerifyCanceled counts CancelVerify calls that returned an outcome.
	MetricVerifyCanceled
	// MetricVerifyInProgressRejected counts Verify calls rejected by the in-progress guard.
	MetricVerifyInProgressRejected
	// MetricVerifyBlocked counts Verify calls rejected by the sticky setup error.
	MetricVerifyBlocked
	MetricLookupSuccess
	MetricLookupNotFound
	MetricLookupValidationError
	MetricLookupError
	MetricLookupRateLimited
	// MetricChallengeRequired counts lookups that returned a challenge descriptor.
	MetricChallengeRequired
	MetricChallengeSucceeded
	MetricChallengeFailed
	MetricSDKSetupSuccess
	MetricSDKSetupFailure
	MetricSDKSetupTimeout
	MetricSDKScriptLoadFailure
	// MetricEnrichmentFailure counts discarded fingerprint and bin lookups.
	MetricEnrichmentFailure
	MetricJWTExchangeFailure
	MetricHandoffStored
	MetricHandoffResumed
	// MetricLookupLatency is the gateway lookup latency histogram.
	MetricLookupLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of verification counters.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the lookup latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments counter id. It is safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricLookupLatency carries a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricLookupLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
// Histogram buckets are not cumulative.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricLookupLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLookupLatency].buckets[i])
		}
		s.Histograms[MetricLookupLatency] = buckets
	}

	return s
}

// bucketIndex maps a lookup latency onto the upper bounds
// 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
