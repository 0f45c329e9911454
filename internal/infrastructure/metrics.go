package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors published by the pipeline. A single
// instance is shared across fetcher and orchestrator; all methods are safe
// for concurrent use.
type Metrics struct {
	Registry *prometheus.Registry

	FetchAttempts   *prometheus.CounterVec
	FetchRetries    prometheus.Counter
	SymbolsOK       prometheus.Counter
	SymbolsFailed   *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	ValidationIssue *prometheus.CounterVec
}

// NewMetrics registers all pipeline collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bullboard",
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Provider calls made, labelled by outcome.",
		}, []string{"outcome"}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bullboard",
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Retry attempts after transient provider failures.",
		}),
		SymbolsOK: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bullboard",
			Subsystem: "pipeline",
			Name:      "symbols_succeeded_total",
			Help:      "Symbols that produced an analytics frame.",
		}),
		SymbolsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bullboard",
			Subsystem: "pipeline",
			Name:      "symbols_failed_total",
			Help:      "Symbols that failed, labelled by stage.",
		}, []string{"stage"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bullboard",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of full pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ValidationIssue: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bullboard",
			Subsystem: "validation",
			Name:      "issues_total",
			Help:      "Data quality issues found, labelled by kind and severity.",
		}, []string{"kind", "severity"}),
	}
}
