package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exports engine metrics to Prometheus.
type Collector struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration prometheus.Histogram
	workersIdle  prometheus.Gauge
	workersBusy  prometheus.Gauge
	queueDepth   prometheus.Gauge
}

// NewCollector registers the engine metrics on the given registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry or a
// fresh registry in tests.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sonix_tasks_total",
				Help: "Total number of finished waveform tasks by outcome",
			},
			[]string{"status"},
		),
		taskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sonix_task_duration_seconds",
				Help:    "Waveform task processing duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		workersIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sonix_workers_idle",
				Help: "Number of idle workers",
			},
		),
		workersBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sonix_workers_busy",
				Help: "Number of busy workers",
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sonix_queue_depth",
				Help: "Number of tasks waiting in the overflow queue",
			},
		),
	}
}

// ObserveTask records a finished task with its duration.
func (c *Collector) ObserveTask(status string, d time.Duration) {
	c.tasksTotal.WithLabelValues(status).Inc()
	c.taskDuration.Observe(d.Seconds())
}

// CountTask records a finished task without a duration.
func (c *Collector) CountTask(status string) {
	c.tasksTotal.WithLabelValues(status).Inc()
}

// SetWorkerCounts updates the worker gauges.
func (c *Collector) SetWorkerCounts(idle, busy int) {
	c.workersIdle.Set(float64(idle))
	c.workersBusy.Set(float64(busy))
}

// SetQueueDepth updates the queue depth gauge.
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}
