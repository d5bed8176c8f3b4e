// Package metrics exposes Prometheus instrumentation for the validator loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts polling cycles by outcome: "ok", "empty",
	// "skipped", "error".
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "talisman",
		Subsystem: "validator",
		Name:      "cycles_total",
		Help:      "Polling cycles by outcome",
	}, []string{"result"})

	// VerdictsTotal counts graded verdicts by error code ("valid" for a
	// pass).
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "talisman",
		Subsystem: "validator",
		Name:      "verdicts_total",
		Help:      "Grading verdicts by error code",
	}, []string{"code"})

	// SubmitRetriesTotal counts result submissions retained for retry
	// after a transport failure.
	SubmitRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "talisman",
		Subsystem: "validator",
		Name:      "submit_retries_total",
		Help:      "Result submissions retained for retry",
	})

	// RewardHotkeys tracks the size of the current reward snapshot.
	RewardHotkeys = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "talisman",
		Subsystem: "validator",
		Name:      "reward_hotkeys",
		Help:      "Hotkeys in the current reward snapshot",
	})

	// GradeDuration observes per-unit grading latency.
	GradeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "talisman",
		Subsystem: "validator",
		Name:      "grade_duration_seconds",
		Help:      "Per-unit grading latency",
		Buckets:   prometheus.DefBuckets,
	})
)

// ObserveVerdict records a graded outcome.
func ObserveVerdict(code string) {
	if code == "" {
		code = "valid"
	}
	VerdictsTotal.WithLabelValues(code).Inc()
}
