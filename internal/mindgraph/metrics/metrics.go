// Package metrics holds the Prometheus collectors for the study engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mindgraph"

var (
	// GraphBuilds counts rebuilds from the note store.
	// Labels: status (ok, error)
	GraphBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "builds_total",
		Help:      "Graph rebuilds from the note store",
	}, []string{"status"})

	// GraphBuildDuration measures rebuild latency
	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "build_duration_seconds",
		Help:      "Time spent inferring edges from the note store",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	// GraphNodes tracks the node count after each mutation
	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "nodes",
		Help:      "Notes currently in the graph",
	})

	// GraphEdges tracks the edge count after each mutation
	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "edges",
		Help:      "Directed edges currently in the graph",
	})

	// InferredEdges counts edges created by keyword inference
	InferredEdges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "inferred_edges_total",
		Help:      "Edges added by keyword to title inference",
	})

	// RevisionDequeues counts notes served for revision.
	// Labels: source (manual, next)
	RevisionDequeues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "revision",
		Name:      "dequeues_total",
		Help:      "Notes dequeued for revision",
	}, []string{"source"})

	// RevisionRefills counts queue rebuilds by source
	RevisionRefills = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "revision",
		Name:      "refills_total",
		Help:      "Revision queue rebuilds",
	}, []string{"source"})

	// HistoryRejections counts pushes refused by a full history
	HistoryRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "rejections_total",
		Help:      "Navigation pushes rejected because the history is full",
	})

	// JournalAppends counts journal records per structure
	JournalAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "journal_appends_total",
		Help:      "Mutation records appended to a journal",
	}, []string{"structure"})

	// Compactions counts snapshot writes per structure
	Compactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "compactions_total",
		Help:      "Snapshots written and journals truncated",
	}, []string{"structure"})

	// SnapshotRecoveries counts loads that dropped corrupt data
	SnapshotRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "recoveries_total",
		Help:      "Loads that discarded a corrupt snapshot or journal tail",
	}, []string{"structure"})

	// StoreBreakerState reports the note store circuit breaker state (0 closed, 1 half-open, 2 open)
	StoreBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "breaker_state",
		Help:      "Note store circuit breaker state",
	})
)
