package monitor

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// ewmaAlpha is the weight of the newest observation in the
// exponentially weighted average processing time.
const ewmaAlpha = 0.2

// Stats is a point-in-time snapshot of the engine.
type Stats struct {
	ActiveWorkers int `json:"active_workers"`
	IdleWorkers   int `json:"idle_workers"`
	BusyWorkers   int `json:"busy_workers"`

	QueuedTasks  int `json:"queued_tasks"`
	RunningTasks int `json:"running_tasks"`

	CompletedTasks uint64 `json:"completed_tasks"`
	FailedTasks    uint64 `json:"failed_tasks"`
	CancelledTasks uint64 `json:"cancelled_tasks"`

	AverageProcessingTime time.Duration `json:"average_processing_time"`

	// MemoryEstimate is the process heap in use, the closest available
	// proxy for the engine's footprint inside a host process.
	MemoryEstimate uint64 `json:"memory_estimate"`
}

// Monitor accumulates counters and the rolling processing-time
// average. All methods are safe for concurrent use.
type Monitor struct {
	logger    *slog.Logger
	collector *Collector

	mu          sync.Mutex
	completed   uint64
	failed      uint64
	cancelled   uint64
	avgSeconds  float64
	haveAverage bool
}

// New creates a monitor. The collector may be nil when Prometheus
// export is not wanted.
func New(logger *slog.Logger, collector *Collector) *Monitor {
	return &Monitor{
		logger:    logger.With("component", "resource_monitor"),
		collector: collector,
	}
}

// RecordCompletion notes a successful task and folds its duration into
// the rolling average.
func (m *Monitor) RecordCompletion(d time.Duration) {
	m.mu.Lock()
	m.completed++
	if !m.haveAverage {
		m.avgSeconds = d.Seconds()
		m.haveAverage = true
	} else {
		m.avgSeconds = ewmaAlpha*d.Seconds() + (1-ewmaAlpha)*m.avgSeconds
	}
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.ObserveTask("completed", d)
	}
}

// RecordFailure notes a failed task.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.CountTask("failed")
	}
}

// RecordCancellation notes a cancelled task.
func (m *Monitor) RecordCancellation() {
	m.mu.Lock()
	m.cancelled++
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.CountTask("cancelled")
	}
}

// RecordQueueDepth publishes the current queue depth gauge.
func (m *Monitor) RecordQueueDepth(depth int) {
	if m.collector != nil {
		m.collector.SetQueueDepth(depth)
	}
}

// RecordWorkerCounts publishes the per-state worker gauges.
func (m *Monitor) RecordWorkerCounts(idle, busy int) {
	if m.collector != nil {
		m.collector.SetWorkerCounts(idle, busy)
	}
}

// Average returns the rolling average processing time, zero until the
// first completion.
func (m *Monitor) Average() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Duration(m.avgSeconds * float64(time.Second))
}

// Snapshot merges the monitor's counters with scheduler-supplied live
// numbers into a Stats value.
func (m *Monitor) Snapshot(active, idle, busy, queued, running int) Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		ActiveWorkers:         active,
		IdleWorkers:           idle,
		BusyWorkers:           busy,
		QueuedTasks:           queued,
		RunningTasks:          running,
		CompletedTasks:        m.completed,
		FailedTasks:           m.failed,
		CancelledTasks:        m.cancelled,
		AverageProcessingTime: time.Duration(m.avgSeconds * float64(time.Second)),
		MemoryEstimate:        mem.HeapAlloc,
	}
}
