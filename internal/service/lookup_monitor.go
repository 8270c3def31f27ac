package service

import (
	"sort"
	"sync"
	"time"

	"github.com/id-scanner/internal/types"
)

// slowLookupThreshold marks a lookup as slow
const slowLookupThreshold = 500 * time.Millisecond

// LookupMonitor tracks record store lookup latency and outcomes
type LookupMonitor struct {
	mu         sync.RWMutex
	durations  []time.Duration
	byStatus   map[types.VerificationStatus]int64
	slow       int64
	total      int64
	maxSamples int
}

// NewLookupMonitor creates a monitor keeping the last 1000 samples
func NewLookupMonitor() *LookupMonitor {
	return &LookupMonitor{
		durations:  make([]time.Duration, 0, 1000),
		byStatus:   make(map[types.VerificationStatus]int64),
		maxSamples: 1000,
	}
}

// Record adds one lookup outcome
func (m *LookupMonitor) Record(duration time.Duration, status types.VerificationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byStatus[status]++
	if duration > slowLookupThreshold {
		m.slow++
	}

	m.durations = append(m.durations, duration)
	if len(m.durations) > m.maxSamples {
		m.durations = m.durations[len(m.durations)-m.maxSamples:]
	}
}

// LookupStats is a snapshot of the monitor
type LookupStats struct {
	TotalLookups int64            `json:"totalLookups"`
	SlowLookups  int64            `json:"slowLookups"`
	ByStatus     map[string]int64 `json:"byStatus"`
	ErrorRate    float64          `json:"errorRate"` // percentage of LOOKUP_ERROR
	AvgMs        float64          `json:"avgMs"`
	P95Ms        float64          `json:"p95Ms"`
}

// Stats returns a snapshot of the recorded lookups
func (m *LookupMonitor) Stats() LookupStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := LookupStats{
		TotalLookups: m.total,
		SlowLookups:  m.slow,
		ByStatus:     make(map[string]int64, len(m.byStatus)),
	}
	for status, n := range m.byStatus {
		stats.ByStatus[status.String()] = n
	}
	if m.total > 0 {
		stats.ErrorRate = float64(m.byStatus[types.StatusLookupError]) / float64(m.total) * 100
	}

	if len(m.durations) > 0 {
		sorted := make([]time.Duration, len(m.durations))
		copy(sorted, m.durations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var total time.Duration
		for _, d := range sorted {
			total += d
		}
		stats.AvgMs = float64(total.Microseconds()) / 1000 / float64(len(sorted))
		stats.P95Ms = float64(sorted[int(float64(len(sorted)-1)*0.95)].Microseconds()) / 1000
	}
	return stats
}
