package notifier

import (
	"sync/atomic"
	"time"
)

type ServiceMetrics struct {
	totalDispatched int64
	totalFailed     int64
	totalDurationNs int64
	lastResetNs     int64
}

func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{
		lastResetNs: time.Now().UnixNano(),
	}
}

func (m *ServiceMetrics) RecordSuccess(duration time.Duration) {
	atomic.AddInt64(&m.totalDispatched, 1)
	atomic.AddInt64(&m.totalDurationNs, int64(duration))
}

func (m *ServiceMetrics) RecordFailure() {
	atomic.AddInt64(&m.totalFailed, 1)
}

func (m *ServiceMetrics) GetStats() map[string]interface{} {
	dispatched := atomic.LoadInt64(&m.totalDispatched)
	failed := atomic.LoadInt64(&m.totalFailed)
	durationNs := atomic.LoadInt64(&m.totalDurationNs)
	lastResetNs := atomic.LoadInt64(&m.lastResetNs)

	elapsed := time.Since(time.Unix(0, lastResetNs)).Seconds()

	rate := 0.0
	if elapsed > 0 {
		rate = float64(dispatched) / elapsed
	}

	avgDuration := time.Duration(0)
	if dispatched > 0 {
		avgDuration = time.Duration(durationNs / dispatched)
	}

	return map[string]interface{}{
		"total_dispatched": dispatched,
		"total_failed":     failed,
		"rate_per_second":  rate,
		"avg_duration_ms":  avgDuration.Milliseconds(),
		"uptime_seconds":   elapsed,
	}
}

func (m *ServiceMetrics) Reset() {
	atomic.StoreInt64(&m.totalDispatched, 0)
	atomic.StoreInt64(&m.totalFailed, 0)
	atomic.StoreInt64(&m.totalDurationNs, 0)
	atomic.StoreInt64(&m.lastResetNs, time.Now().UnixNano())
}
