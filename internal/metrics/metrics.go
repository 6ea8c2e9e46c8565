package metrics

import (
	"math"
	"sync"
	"time"
)

// Metrics holds the raw request counters.
type Metrics struct {
	mutex         sync.RWMutex
	totalRequests int64
	errorCount    int64
	statusCodes   map[int]int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64         `json:"totalRequests"`
	ErrorCount    int64         `json:"errorCount"`
	ErrorRate     float64       `json:"errorRate"`
	StatusCodes   map[int]int64 `json:"statusCodes"`
	Uptime        time.Duration `json:"uptime"`
}

// RecordCompletion counts one finished request. Status codes of 400 and
// above also count as errors.
func (m *Metrics) RecordCompletion(statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRequests++
	if statusCode >= 400 {
		m.errorCount++
	}
	m.statusCodes[statusCode]++
}

func (m *Metrics) ErrorRatePercent() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return errorRate(m.errorCount, m.totalRequests)
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	codes := make(map[int]int64, len(m.statusCodes))
	for code, n := range m.statusCodes {
		codes[code] = n
	}

	return Snapshot{
		TotalRequests: m.totalRequests,
		ErrorCount:    m.errorCount,
		ErrorRate:     errorRate(m.errorCount, m.totalRequests),
		StatusCodes:   codes,
		Uptime:        time.Since(m.startTime),
	}
}

func NewMetrics() *Metrics {
	return &Metrics{
		statusCodes: make(map[int]int64),
		startTime:   time.Now(),
	}
}

// errorRate is errors/total as a percentage rounded to two decimals, or 0
// when nothing has been recorded.
func errorRate(errors, total int64) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(errors) / float64(total) * 100
	return math.Round(rate*100) / 100
}
