package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount      int64
	ErrorCount        int64
	CacheHits         int64
	CacheMisses       int64
	AnalyzeCount      int64
	CollectCount      int64
	CollectErrorCount int64
	StartTime         time.Time

	// Response time samples for the mean and percentiles
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, 1000),
		RequestCountByStatus: make(map[int]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// IncrementAnalyze increments the analysis run count
func (m *Metrics) IncrementAnalyze() {
	atomic.AddInt64(&m.AnalyzeCount, 1)
}

// RecordCollect records a browser collection run
func (m *Metrics) RecordCollect(success bool) {
	atomic.AddInt64(&m.CollectCount, 1)
	if !success {
		atomic.AddInt64(&m.CollectErrorCount, 1)
	}
}

// RecordResponseTime keeps the last 1000 samples; mean and percentiles are
// derived from the same window.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// GetAverageResponseTime returns the mean over the sample window.
func (m *Metrics) GetAverageResponseTime() time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.ResponseTimes {
		total += d
	}
	return total / time.Duration(len(m.ResponseTimes))
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64)
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// Snapshot returns the metrics as a JSON-friendly map for the metrics endpoint
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"request_count":        atomic.LoadInt64(&m.RequestCount),
		"error_count":          atomic.LoadInt64(&m.ErrorCount),
		"cache_hits":           atomic.LoadInt64(&m.CacheHits),
		"cache_misses":         atomic.LoadInt64(&m.CacheMisses),
		"analyze_count":        atomic.LoadInt64(&m.AnalyzeCount),
		"collect_count":        atomic.LoadInt64(&m.CollectCount),
		"collect_error_count":  atomic.LoadInt64(&m.CollectErrorCount),
		"avg_response_time_ms": float64(m.GetAverageResponseTime()) / 1e6,
		"p50_response_time_ms": float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms": float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms": float64(m.GetPercentileResponseTime(99)) / 1e6,
		"requests_by_status":   m.GetStatusCodeDistribution(),
	}
}
