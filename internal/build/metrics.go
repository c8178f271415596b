package build

import (
	"sync"
	"time"
)

// Metrics tracks build outcomes on the lane.
type Metrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	CancelledBuilds  int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordBuild records a finished task. Cancelled tasks do not count toward
// the duration average.
func (m *Metrics) RecordBuild(result Result) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if result.Cancelled {
		m.CancelledBuilds++
		return
	}

	m.TotalBuilds++
	m.TotalDuration += result.Duration
	if result.Success() {
		m.SuccessfulBuilds++
	} else {
		m.FailedBuilds++
	}
	m.AverageDuration = m.TotalDuration / time.Duration(m.TotalBuilds)
}

// RecordCancelled counts a task cancelled before it ran.
func (m *Metrics) RecordCancelled() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.CancelledBuilds++
}

// GetSnapshot returns a copy of the current metrics
func (m *Metrics) GetSnapshot() Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return Metrics{
		TotalBuilds:      m.TotalBuilds,
		SuccessfulBuilds: m.SuccessfulBuilds,
		FailedBuilds:     m.FailedBuilds,
		CancelledBuilds:  m.CancelledBuilds,
		AverageDuration:  m.AverageDuration,
		TotalDuration:    m.TotalDuration,
	}
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalBuilds = 0
	m.SuccessfulBuilds = 0
	m.FailedBuilds = 0
	m.CancelledBuilds = 0
	m.AverageDuration = 0
	m.TotalDuration = 0
}

// GetSuccessRate returns the success rate as a percentage
func (m *Metrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.TotalBuilds == 0 {
		return 0.0
	}

	return float64(m.SuccessfulBuilds) / float64(m.TotalBuilds) * 100.0
}
