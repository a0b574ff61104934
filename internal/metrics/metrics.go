package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sendsTotal counts per-recipient send outcomes.
	// Labels:
	// - status: "sent" or "failed"
	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftmail",
			Subsystem: "dispatch",
			Name:      "sends_total",
			Help:      "Number of per-recipient send attempts by final status",
		},
		[]string{"status"},
	)

	// dispatchDuration tracks how long a full dispatch batch takes.
	dispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "driftmail",
			Subsystem: "dispatch",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a dispatch batch (all recipients)",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// jobRuns counts executed scheduled jobs by aggregate result.
	// Labels:
	// - result: "sent", "partial_failure", "failed" or "schedule_error"
	jobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftmail",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Number of scheduled job executions by aggregate result",
		},
		[]string{"result"},
	)

	// tickDuration tracks the wall time of one scheduler tick.
	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "driftmail",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one scheduler tick including job dispatch",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// tickOverruns counts ticks that took longer than the tick interval.
	// This is the one condition worth paging on.
	tickOverruns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "driftmail",
			Subsystem: "scheduler",
			Name:      "tick_overruns_total",
			Help:      "Number of scheduler ticks that exceeded the tick interval",
		},
	)

	// credentialsDeactivated counts credentials turned off after a provider rejection.
	credentialsDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "driftmail",
			Subsystem: "rotator",
			Name:      "credentials_deactivated_total",
			Help:      "Number of credentials deactivated after provider rejection",
		},
	)
)

// IncSend increments the per-recipient send counter for the given status.
func IncSend(status string) {
	if status == "" {
		status = "unknown"
	}
	sendsTotal.WithLabelValues(status).Inc()
}

// ObserveDispatch records the duration of a dispatch batch.
func ObserveDispatch(d time.Duration) {
	dispatchDuration.Observe(d.Seconds())
}

// IncJobRun increments the job execution counter for the given result.
func IncJobRun(result string) {
	if result == "" {
		result = "unknown"
	}
	jobRuns.WithLabelValues(result).Inc()
}

// ObserveTick records the duration of one scheduler tick.
func ObserveTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// IncTickOverrun increments the tick overrun counter.
func IncTickOverrun() {
	tickOverruns.Inc()
}

// IncCredentialDeactivated increments the deactivation counter.
func IncCredentialDeactivated() {
	credentialsDeactivated.Inc()
}
