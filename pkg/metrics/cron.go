package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// CronJobMetrics records maintenance runs per job. A nil registerer yields
// working but unexported collectors.
type CronJobMetrics struct {
	duration     *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	lastSuccess  *prometheus.GaugeVec
	outboxParked prometheus.Gauge
	now          func() time.Time
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	factory := promauto.With(reg)
	return &CronJobMetrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Duration of cron jobs in seconds.",
			Buckets: []float64{.05, .25, 1, 5, 30, 120, 600},
		}, []string{"job"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		outboxParked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_events_parked",
			Help: "Unpublished outbox rows that exhausted their publish attempts.",
		}),
		now: time.Now,
	}
}

func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, outcomeSuccess).Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(c.now().Unix()))
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(normalizeLabel(job), outcomeFailure).Inc()
}

// SetOutboxParked publishes the latest parked-row count.
func (c *CronJobMetrics) SetOutboxParked(count int64) {
	if c == nil {
		return
	}
	c.outboxParked.Set(float64(count))
}
