package goThreeDS

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricVerifyStarted)

	if got := m.Value(MetricVerifyStarted); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsNilIsNoOp(t *testing.T) {
	var m *Metrics
	m.Inc(MetricVerifyStarted)
	m.Observe(MetricLookupLatency, time.Millisecond)

	if m.Enabled() || m.Value(MetricVerifyStarted) != 0 {
		t.Fatal("nil metrics recorded a value")
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricVerifyCompleted)
	m.Inc(MetricVerifyCompleted)
	m.Inc(MetricVerifyCompleted)

	if got := m.Value(MetricVerifyCompleted); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricLookupSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricLookupSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		20 * time.Millisecond,
		80 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		900 * time.Millisecond,
		2 * time.Second,
		4 * time.Second,
		9 * time.Second,
	}

	for _, d := range observations {
		m.Observe(MetricLookupLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricLookupLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricVerifyStarted, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricVerifyStarted]; ok {
		t.Fatal("counter id produced a histogram")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricChallengeRequired)
	m.Inc(MetricChallengeFailed)
	m.Inc(MetricChallengeFailed)
	m.Observe(MetricLookupLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricChallengeRequired] != 1 {
		t.Fatalf("expected MetricChallengeRequired=1 got %d", snap.Counters[MetricChallengeRequired])
	}
	if snap.Counters[MetricChallengeFailed] != 2 {
		t.Fatalf("expected MetricChallengeFailed=2 got %d", snap.Counters[MetricChallengeFailed])
	}
	if _, ok := snap.Counters[MetricLookupLatency]; ok {
		t.Fatal("histogram id listed as a counter")
	}
	if len(snap.Histograms[MetricLookupLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricLookupLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricLookupLatency][0])
	}
}
