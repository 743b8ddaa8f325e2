package qlearn

import (
	"sort"
	"sync"
	"time"
)

// Metrics tracks the pool's workload.
type Metrics struct {
	mu                 sync.RWMutex
	WorkerCount        int
	JobQueueSize       int
	LastScale          time.Time
	TotalJobTime       time.Duration
	JobCount           int64
	FailedJobs         int64
	SchedulingFailures int64

	AverageJobLatency time.Duration
	P95JobLatency     time.Duration
	P99JobLatency     time.Duration
	JobSuccessRate    float64

	latencies  []time.Duration
	windowSize int
}

func NewMetrics() *Metrics {
	return &Metrics{
		latencies:  make([]time.Duration, 0, 1000),
		windowSize: 1000,
	}
}

func (m *Metrics) recordJobExecution(startTime time.Time, success bool) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalJobTime += duration
	m.JobCount++
	if !success {
		m.FailedJobs++
	}
	m.JobSuccessRate = float64(m.JobCount-m.FailedJobs) / float64(m.JobCount)

	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageJobLatency = m.TotalJobTime / time.Duration(m.JobCount)

	m.latencies = append(m.latencies, duration)
	if len(m.latencies) > m.windowSize {
		m.latencies = m.latencies[1:]
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	p95Index := min(int(float64(len(sorted))*0.95), len(sorted)-1)
	p99Index := min(int(float64(len(sorted))*0.99), len(sorted)-1)
	m.P95JobLatency = sorted[p95Index]
	m.P99JobLatency = sorted[p99Index]
}

func (m *Metrics) recordSchedulingFailure() {
	m.mu.Lock()
	m.SchedulingFailures++
	m.mu.Unlock()
}

func (m *Metrics) setQueueSize(n int) {
	m.mu.Lock()
	m.JobQueueSize = n
	m.mu.Unlock()
}

func (m *Metrics) addWorker() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerCount++
	return m.WorkerCount
}

// MetricsSnapshot is a lock-free copy of the counters.
type MetricsSnapshot struct {
	WorkerCount        int
	JobQueueSize       int
	JobCount           int64
	FailedJobs         int64
	SchedulingFailures int64
	JobSuccessRate     float64
	AverageJobLatency  time.Duration
	P95JobLatency      time.Duration
	P99JobLatency      time.Duration
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		WorkerCount:        m.WorkerCount,
		JobQueueSize:       m.JobQueueSize,
		JobCount:           m.JobCount,
		FailedJobs:         m.FailedJobs,
		SchedulingFailures: m.SchedulingFailures,
		JobSuccessRate:     m.JobSuccessRate,
		AverageJobLatency:  m.AverageJobLatency,
		P95JobLatency:      m.P95JobLatency,
		P99JobLatency:      m.P99JobLatency,
	}
}

// ExportMetrics flattens the counters for printing.
func (m *Metrics) ExportMetrics() map[string]interface{} {
	s := m.Snapshot()
	return map[string]interface{}{
		"worker_count": s.WorkerCount,
		"queue_size":   s.JobQueueSize,
		"jobs":         s.JobCount,
		"success_rate": s.JobSuccessRate,
		"avg_latency":  s.AverageJobLatency.Microseconds(),
		"p95_latency":  s.P95JobLatency.Microseconds(),
		"p99_latency":  s.P99JobLatency.Microseconds(),
	}
}
