package services

import "github.com/prometheus/client_golang/prometheus"

// Pass results and per-action outcomes used as label values.
const (
	passCompleted = "completed"
	passFailed    = "failed"
	passSkipped   = "skipped"

	outcomeSynced  = "synced"
	outcomeRetried = "retried"
	outcomeDropped = "dropped"
)

var (
	// pendingGauge mirrors the length of the in-memory pending list.
	pendingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "recur_offline_pending_actions",
			Help: "Number of offline actions waiting to be synced.",
		},
	)

	syncPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recur_offline_sync_passes_total",
			Help: "Sync passes by result (completed, failed, skipped).",
		},
		[]string{"result"},
	)

	// actionAttempts labels are bounded by the dispatch table.
	actionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recur_offline_action_attempts_total",
			Help: "Remote replay attempts by entity, type and outcome.",
		},
		[]string{"entity", "type", "outcome"},
	)

	passDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recur_offline_sync_pass_duration_seconds",
			Help:    "Wall time of sync passes that ran.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms..~20s
		},
	)
)

func init() {
	prometheus.MustRegister(pendingGauge, syncPasses, actionAttempts, passDuration)
}
