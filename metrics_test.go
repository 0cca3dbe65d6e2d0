package sockbuf

import (
	"errors"
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.RecordEnqueue(1024, false)
	m.RecordEnqueue(4, true)
	m.RecordFlush(1024, 1_000_000, nil)
	m.RecordFlush(0, 500_000, errors.New("fatal"))

	snap = m.Snapshot()

	if snap.EnqueueOps != 2 {
		t.Errorf("Expected 2 enqueue ops, got %d", snap.EnqueueOps)
	}
	if snap.UrgentEnqueues != 1 {
		t.Errorf("Expected 1 urgent enqueue, got %d", snap.UrgentEnqueues)
	}
	if snap.EnqueueBytes != 1028 {
		t.Errorf("Expected 1028 enqueue bytes, got %d", snap.EnqueueBytes)
	}
	if snap.FlushOps != 2 {
		t.Errorf("Expected 2 flush ops, got %d", snap.FlushOps)
	}
	if snap.FlushErrors != 1 {
		t.Errorf("Expected 1 flush error, got %d", snap.FlushErrors)
	}
}

func TestMetricsClose(t *testing.T) {
	m := NewMetrics()

	m.RecordClose(false)
	m.RecordClose(true)
	m.RecordPoolWait()

	snap := m.Snapshot()
	if snap.CloseOps != 2 {
		t.Errorf("Expected 2 close ops, got %d", snap.CloseOps)
	}
	if snap.ForceCloseOps != 1 {
		t.Errorf("Expected 1 force-close op, got %d", snap.ForceCloseOps)
	}
	if snap.PoolWaitOps != 1 {
		t.Errorf("Expected 1 pool-wait op, got %d", snap.PoolWaitOps)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordFlush(1024, 1_000_000, nil)
	m.RecordFlush(1024, 2_000_000, nil)

	snap := m.Snapshot()
	expectedAvgNs := uint64(1_500_000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordEnqueue(1024, false)
	m.RecordFlush(1024, 1_000_000, nil)

	snap := m.Snapshot()
	if snap.TotalOps == 0 {
		t.Error("Expected some operations before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("Expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.EnqueueBytes != 0 {
		t.Errorf("Expected 0 bytes after reset, got %d", snap.EnqueueBytes)
	}
}

func TestObserver(t *testing.T) {
	observer := NoOpObserver{}
	observer.ObserveEnqueue(1024, false)
	observer.ObserveFlush(1024, 1_000_000, nil)
	observer.ObserveClose(false)
	observer.ObservePoolWait()

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveEnqueue(1024, false)
	metricsObserver.ObserveFlush(2048, 2_000_000, nil)

	snap := m.Snapshot()
	if snap.EnqueueOps != 1 {
		t.Errorf("Expected 1 enqueue op from observer, got %d", snap.EnqueueOps)
	}
	if snap.FlushOps != 1 {
		t.Errorf("Expected 1 flush op from observer, got %d", snap.FlushOps)
	}
	if snap.FlushBytes != 2048 {
		t.Errorf("Expected 2048 flush bytes from observer, got %d", snap.FlushBytes)
	}
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordFlush(1024, 1_000_000, nil)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()

	if snap.FlushIOPS < 0.9 || snap.FlushIOPS > 1.1 {
		t.Errorf("Expected FlushIOPS ~1.0, got %.2f", snap.FlushIOPS)
	}
	if snap.Bandwidth < 1000 || snap.Bandwidth > 1050 {
		t.Errorf("Expected Bandwidth ~1024, got %.2f", snap.Bandwidth)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordFlush(1024, 500_000, nil)
	}
	for i := 0; i < 49; i++ {
		m.RecordFlush(1024, 5_000_000, nil)
	}
	m.RecordFlush(1024, 50_000_000, nil)

	snap := m.Snapshot()

	if snap.FlushOps != 100 {
		t.Errorf("Expected 100 flush ops, got %d", snap.FlushOps)
	}
	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}
	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
