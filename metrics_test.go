package sessionauth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsNilAndDisabledAreInert(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	nilMetrics.Add(MetricSessionRevoked, 5)
	nilMetrics.Observe(MetricVerifyLatency, time.Millisecond)
	if nilMetrics.Enabled() || nilMetrics.LatencyEnabled() {
		t.Fatal("nil metrics reported enabled")
	}
	if got := nilMetrics.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("nil metrics value: %d", got)
	}

	disabled := NewMetrics(MetricsConfig{Enabled: false})
	disabled.Inc(MetricLoginSuccess)
	if got := disabled.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled metrics recorded: %d", got)
	}
	snap := disabled.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot not empty: %+v", snap)
	}
}

func TestMetricsCountersAndHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Add(MetricSessionRevoked, 3)
	m.Add(MetricSessionRevoked, 0) // no-op

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success: %d", got)
	}
	if got := m.Value(MetricSessionRevoked); got != 3 {
		t.Fatalf("session revoked: %d", got)
	}

	m.Observe(MetricVerifyLatency, 3*time.Millisecond)   // bucket 0
	m.Observe(MetricVerifyLatency, 40*time.Millisecond)  // bucket 3
	m.Observe(MetricVerifyLatency, 900*time.Millisecond) // bucket 7
	m.Observe(MetricLoginSuccess, time.Millisecond)      // not a histogram id

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricVerifyLatency]
	if !ok {
		t.Fatal("verify latency histogram missing from snapshot")
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected buckets: %v", buckets)
	}
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("snapshot counters: %v", snap.Counters)
	}
}

func TestMetricsLatencyDisabledSkipsHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricVerifyLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Histograms) != 0 {
		t.Fatalf("histogram recorded with latency disabled: %+v", snap.Histograms)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricVerifySuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricVerifySuccess); got != workers*perWorker {
		t.Fatalf("lost increments: %d", got)
	}
}

func TestManagerRecordsLifecycleMetrics(t *testing.T) {
	m := newTestManager(t, func(b *Builder) {
		cfg := testConfig(t)
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
		b.WithConfig(cfg)
	})
	ctx := context.Background()

	pair, err := m.Login(ctx, "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := m.Login(ctx, "alice", "nope"); err == nil {
		t.Fatal("expected login failure")
	}
	next, err := m.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := m.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("expected reuse failure")
	}
	if _, err := m.Verify(ctx, next.AccessToken); err != nil {
		t.Fatalf("verify: %v", err)
	}

	snap := m.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricLoginSuccess:         1,
		MetricLoginFailure:         1,
		MetricSessionCreated:       1,
		MetricRefreshSuccess:       1,
		MetricRefreshFailure:       1,
		MetricRefreshReuseDetected: 1,
		MetricLineageRevoked:       2,
		MetricSessionRevoked:       2,
		MetricVerifySuccess:        1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("metric %d: got %d want %d (all: %v)", id, got, want, snap.Counters)
		}
	}

	var observed uint64
	for _, n := range snap.Histograms[MetricVerifyLatency] {
		observed += n
	}
	if observed != 1 {
		t.Fatalf("expected one verify latency observation, got %d", observed)
	}
}
