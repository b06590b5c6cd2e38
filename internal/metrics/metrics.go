package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the scheduler. Exposed on /metrics by the ops
// router.
var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "outrigger",
		Name:      "scheduler_ticks_total",
		Help:      "Number of evaluation ticks started.",
	})

	TickFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "outrigger",
		Name:      "scheduler_tick_failures_total",
		Help:      "Number of ticks aborted before building a schedule (snapshot load failures).",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "outrigger",
		Name:      "scheduler_tick_duration_seconds",
		Help:      "Wall time of one full evaluation tick.",
		Buckets:   prometheus.DefBuckets,
	})

	RulesBuilt = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "outrigger",
		Name:      "scheduler_rules_built",
		Help:      "Number of schedule rules produced by the last tick.",
	})

	RulesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outrigger",
		Name:      "scheduler_rules_submitted_total",
		Help:      "Rules handed to the executor, by job kind.",
	}, []string{"kind"})

	LockContention = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "outrigger",
		Name:      "dispatch_lock_contention_total",
		Help:      "Submissions skipped because another node holds the job lock.",
	})

	InvalidTriggers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "outrigger",
		Name:      "scheduler_invalid_triggers_total",
		Help:      "Rules dropped because their trigger expression failed to parse.",
	})

	ReconcileDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outrigger",
		Name:      "scheduler_reconcile_deletes_total",
		Help:      "Structurally invalid entities removed by reconciliation, by entity kind.",
	}, []string{"entity"})
)
