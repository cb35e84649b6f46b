package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Provider requests
	requestsTotal  atomic.Uint64
	requestErrors  atomic.Uint64
	latencySumNs   atomic.Int64
	latencyCount   atomic.Uint64
	requestsActive atomic.Int32

	// Fetch lifecycle
	fetchesIssued    atomic.Uint64
	fetchesSucceeded atomic.Uint64
	fetchesFailed    atomic.Uint64
	fetchesCancelled atomic.Uint64
	staleDiscarded   atomic.Uint64

	// Persistence
	persistWrites atomic.Uint64
	persistErrors atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordRequest records a completed provider request with its latency.
func (m *Metrics) RecordRequest(latency time.Duration, failed bool) {
	m.requestsTotal.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
	if failed {
		m.requestErrors.Add(1)
	}
}

// IncrementRequests marks a provider request as in flight.
func (m *Metrics) IncrementRequests() {
	m.requestsActive.Add(1)
}

// DecrementRequests marks a provider request as finished.
func (m *Metrics) DecrementRequests() {
	m.requestsActive.Add(-1)
}

// FetchIssued records a controller entering Loading.
func (m *Metrics) FetchIssued() { m.fetchesIssued.Add(1) }

// FetchSucceeded records a result applied as Ready.
func (m *Metrics) FetchSucceeded() { m.fetchesSucceeded.Add(1) }

// FetchFailed records a result applied as Failed.
func (m *Metrics) FetchFailed() { m.fetchesFailed.Add(1) }

// FetchCancelled records a request that was superseded or torn down.
func (m *Metrics) FetchCancelled() { m.fetchesCancelled.Add(1) }

// StaleDiscarded records a result dropped by the generation check.
func (m *Metrics) StaleDiscarded() { m.staleDiscarded.Add(1) }

// RecordPersist records a key-value store write.
func (m *Metrics) RecordPersist(err error) {
	m.persistWrites.Add(1)
	if err != nil {
		m.persistErrors.Add(1)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RequestsTotal    uint64
	RequestErrors    uint64
	RequestsActive   int32
	AvgLatency       time.Duration
	FetchesIssued    uint64
	FetchesSucceeded uint64
	FetchesFailed    uint64
	FetchesCancelled uint64
	StaleDiscarded   uint64
	PersistWrites    uint64
	PersistErrors    uint64
	Timestamp        time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RequestsTotal:    m.requestsTotal.Load(),
		RequestErrors:    m.requestErrors.Load(),
		RequestsActive:   m.requestsActive.Load(),
		AvgLatency:       time.Duration(avgLatency),
		FetchesIssued:    m.fetchesIssued.Load(),
		FetchesSucceeded: m.fetchesSucceeded.Load(),
		FetchesFailed:    m.fetchesFailed.Load(),
		FetchesCancelled: m.fetchesCancelled.Load(),
		StaleDiscarded:   m.staleDiscarded.Load(),
		PersistWrites:    m.persistWrites.Load(),
		PersistErrors:    m.persistErrors.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.requestsTotal.Store(0)
	m.requestErrors.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.requestsActive.Store(0)
	m.fetchesIssued.Store(0)
	m.fetchesSucceeded.Store(0)
	m.fetchesFailed.Store(0)
	m.fetchesCancelled.Store(0)
	m.staleDiscarded.Store(0)
	m.persistWrites.Store(0)
	m.persistErrors.Store(0)
}
