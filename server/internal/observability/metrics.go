package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Operation names used as metric keys.
const (
	OpExtractText  = "extract_text"
	OpExtractImage = "extract_image"
)

// Metrics collects extraction counters in process.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	ocrCalls      atomic.Int64
	cacheHits     atomic.Int64
	timesFound    atomic.Int64
	emptyResults  atomic.Int64

	operations map[string]*OperationMetrics

	// Ring of recent durations for percentiles.
	durations    []time.Duration
	maxDurations int
}

// OperationMetrics holds counters for one operation.
type OperationMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		operations:   make(map[string]*OperationMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a request for op.
func (m *Metrics) RecordRequest(op string) {
	m.requestTotal.Add(1)
	m.operation(op).count.Add(1)
}

// RecordFailure records a failed request for op.
func (m *Metrics) RecordFailure(op string) {
	m.requestFailed.Add(1)
	m.operation(op).errorCount.Add(1)
}

// RecordDuration records how long op took.
func (m *Metrics) RecordDuration(op string, d time.Duration) {
	m.operation(op).totalDuration.Add(d.Milliseconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, d)
}

// RecordOCR records a call to the text recognizer.
func (m *Metrics) RecordOCR() {
	m.ocrCalls.Add(1)
}

// RecordCacheHit records OCR text served from cache.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordTimes records how many times one request extracted.
func (m *Metrics) RecordTimes(n int) {
	if n == 0 {
		m.emptyResults.Add(1)
		return
	}
	m.timesFound.Add(int64(n))
}

func (m *Metrics) operation(op string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[op]
	if !ok {
		om = &OperationMetrics{}
		m.operations[op] = om
	}
	return om
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.ocrCalls.Store(0)
	m.cacheHits.Store(0)
	m.timesFound.Store(0)
	m.emptyResults.Store(0)

	m.mu.Lock()
	m.operations = make(map[string]*OperationMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.count.Load()
		snap := &OperationSnapshot{
			Count:      count,
			ErrorCount: om.errorCount.Load(),
		}
		if count > 0 {
			snap.AvgLatencyMs = om.totalDuration.Load() / count
		}
		ops[name] = snap
	}

	sorted := make([]time.Duration, len(m.durations))
	copy(sorted, m.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		OCRCalls:      m.ocrCalls.Load(),
		CacheHits:     m.cacheHits.Load(),
		TimesFound:    m.timesFound.Load(),
		EmptyResults:  m.emptyResults.Load(),
		Operations:    ops,
		P50LatencyMs:  percentile(sorted, 0.50).Milliseconds(),
		P95LatencyMs:  percentile(sorted, 0.95).Milliseconds(),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                         `json:"request_total"`
	RequestFailed int64                         `json:"request_failed"`
	OCRCalls      int64                         `json:"ocr_calls"`
	CacheHits     int64                         `json:"cache_hits"`
	TimesFound    int64                         `json:"times_found"`
	EmptyResults  int64                         `json:"empty_results"`
	Operations    map[string]*OperationSnapshot `json:"operations"`
	P50LatencyMs  int64                         `json:"p50_latency_ms"`
	P95LatencyMs  int64                         `json:"p95_latency_ms"`
}

// OperationSnapshot represents metrics for one operation.
type OperationSnapshot struct {
	Count        int64 `json:"count"`
	ErrorCount   int64 `json:"error_count"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
