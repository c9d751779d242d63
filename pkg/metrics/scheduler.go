package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics records outcomes of the scheduler worker's jobs plus the
// live depth of the cutting queue.
type SchedulerMetrics struct {
	duration   *prometheus.HistogramVec
	success    *prometheus.CounterVec
	failure    *prometheus.CounterVec
	scheduled  prometheus.Counter
	queueDepth prometheus.Gauge
}

// NewSchedulerMetrics registers the scheduler metrics on the provided registerer.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	if reg == nil {
		return &SchedulerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_job_duration_seconds",
		Help:    "Duration of scheduler worker jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_job_success",
		Help: "Successful scheduler job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_job_failure",
		Help: "Failed scheduler job executions.",
	}, []string{"job"})
	scheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_projects_scheduled_total",
		Help: "Projects successfully auto-scheduled into the cutting queue.",
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cutting_queue_depth",
		Help: "Number of active entries in the cutting queue.",
	})
	reg.MustRegister(duration, success, failure, scheduled, queueDepth)
	return &SchedulerMetrics{
		duration:   duration,
		success:    success,
		failure:    failure,
		scheduled:  scheduled,
		queueDepth: queueDepth,
	}
}

// ObserveDuration records the duration for the named job.
func (m *SchedulerMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *SchedulerMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *SchedulerMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncScheduled counts one successful auto-schedule.
func (m *SchedulerMetrics) IncScheduled() {
	if m == nil || m.scheduled == nil {
		return
	}
	m.scheduled.Inc()
}

// SetQueueDepth publishes the current active queue length.
func (m *SchedulerMetrics) SetQueueDepth(depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
