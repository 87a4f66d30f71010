package alerts

import (
	"sync/atomic"
	"time"
)

// DispatchMetrics tracks processed and failed events since start.
type DispatchMetrics struct {
	totalProcessed  int64
	totalFailed     int64
	totalDurationNs int64
	startedNs       int64
}

func NewDispatchMetrics() *DispatchMetrics {
	return &DispatchMetrics{
		startedNs: time.Now().UnixNano(),
	}
}

func (m *DispatchMetrics) RecordSuccess(duration time.Duration) {
	atomic.AddInt64(&m.totalProcessed, 1)
	atomic.AddInt64(&m.totalDurationNs, int64(duration))
}

func (m *DispatchMetrics) RecordFailure() {
	atomic.AddInt64(&m.totalFailed, 1)
}

func (m *DispatchMetrics) GetStats() map[string]interface{} {
	processed := atomic.LoadInt64(&m.totalProcessed)
	failed := atomic.LoadInt64(&m.totalFailed)
	durationNs := atomic.LoadInt64(&m.totalDurationNs)
	startedNs := atomic.LoadInt64(&m.startedNs)

	elapsed := time.Since(time.Unix(0, startedNs)).Seconds()

	rate := 0.0
	if elapsed > 0 {
		rate = float64(processed) / elapsed
	}

	avgDuration := time.Duration(0)
	if processed > 0 {
		avgDuration = time.Duration(durationNs / processed)
	}

	return map[string]interface{}{
		"total_processed": processed,
		"total_failed":    failed,
		"rate_per_second": rate,
		"avg_duration_ms": avgDuration.Milliseconds(),
		"uptime_seconds":  elapsed,
	}
}
