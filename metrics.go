package sockbuf

import (
	"sync/atomic"
	"time"

	"github.com/kflux-io/sockbuf/internal/interfaces"
)

// LatencyBuckets defines the flush-latency histogram buckets in
// nanoseconds, covering 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics across every connection handled
// by a Manager.
type Metrics struct {
	EnqueueOps     atomic.Uint64
	EnqueueBytes   atomic.Uint64
	UrgentEnqueues atomic.Uint64

	FlushOps    atomic.Uint64
	FlushBytes  atomic.Uint64
	FlushErrors atomic.Uint64

	CloseOps      atomic.Uint64
	ForceCloseOps atomic.Uint64
	PoolWaitOps   atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordEnqueue records a write2 call.
func (m *Metrics) RecordEnqueue(bytes int, urgent bool) {
	m.EnqueueOps.Add(1)
	m.EnqueueBytes.Add(uint64(bytes))
	if urgent {
		m.UrgentEnqueues.Add(1)
	}
}

// RecordFlush records one packet emission step from the flush engine.
func (m *Metrics) RecordFlush(bytes int, latencyNs uint64, err error) {
	m.FlushOps.Add(1)
	m.FlushBytes.Add(uint64(bytes))
	if err != nil {
		m.FlushErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordClose records a close (forced=false) or force-close (forced=true).
func (m *Metrics) RecordClose(forced bool) {
	m.CloseOps.Add(1)
	if forced {
		m.ForceCloseOps.Add(1)
	}
}

// RecordPoolWait records a pool exhaustion that forced a flush-all retry.
func (m *Metrics) RecordPoolWait() {
	m.PoolWaitOps.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the manager as stopped, fixing UptimeNs in future snapshots.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics plus derived rates.
type MetricsSnapshot struct {
	EnqueueOps     uint64
	EnqueueBytes   uint64
	UrgentEnqueues uint64

	FlushOps    uint64
	FlushBytes  uint64
	FlushErrors uint64

	CloseOps      uint64
	ForceCloseOps uint64
	PoolWaitOps   uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	FlushIOPS  float64
	Bandwidth  float64
	TotalOps   uint64
	ErrorRate  float64
}

// Snapshot creates a point-in-time snapshot of metrics with derived
// statistics filled in.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		EnqueueOps:     m.EnqueueOps.Load(),
		EnqueueBytes:   m.EnqueueBytes.Load(),
		UrgentEnqueues: m.UrgentEnqueues.Load(),
		FlushOps:       m.FlushOps.Load(),
		FlushBytes:     m.FlushBytes.Load(),
		FlushErrors:    m.FlushErrors.Load(),
		CloseOps:       m.CloseOps.Load(),
		ForceCloseOps:  m.ForceCloseOps.Load(),
		PoolWaitOps:    m.PoolWaitOps.Load(),
	}

	snap.TotalOps = snap.EnqueueOps + snap.FlushOps + snap.CloseOps

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.FlushIOPS = float64(snap.FlushOps) / uptimeSeconds
		snap.Bandwidth = float64(snap.FlushBytes) / uptimeSeconds
	}

	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(snap.FlushErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}
	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters; useful for testing.
func (m *Metrics) Reset() {
	m.EnqueueOps.Store(0)
	m.EnqueueBytes.Store(0)
	m.UrgentEnqueues.Store(0)
	m.FlushOps.Store(0)
	m.FlushBytes.Store(0)
	m.FlushErrors.Store(0)
	m.CloseOps.Store(0)
	m.ForceCloseOps.Store(0)
	m.PoolWaitOps.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveEnqueue(int, bool)        {}
func (NoOpObserver) ObserveFlush(int, uint64, error) {}
func (NoOpObserver) ObserveClose(bool)               {}
func (NoOpObserver) ObservePoolWait()                {}

// MetricsObserver implements interfaces.Observer by recording into a
// Metrics instance; this is what internal/flush sees through the
// interfaces.Observer seam.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveEnqueue(bytes int, urgent bool) {
	o.metrics.RecordEnqueue(bytes, urgent)
}

func (o *MetricsObserver) ObserveFlush(bytes int, latencyNs uint64, err error) {
	o.metrics.RecordFlush(bytes, latencyNs, err)
}

func (o *MetricsObserver) ObserveClose(forced bool) {
	o.metrics.RecordClose(forced)
}

func (o *MetricsObserver) ObservePoolWait() {
	o.metrics.RecordPoolWait()
}

var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = NoOpObserver{}
