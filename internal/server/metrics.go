package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wemcdonald/sqlsafety/pkg/report"
)

const metricsNamespace = "sqlsafety"

// Metrics holds the analysis counters exposed on /metrics
type Metrics struct {
	// AnalysesTotal counts composed reports.
	// Labels: statement_type, risk_level
	AnalysesTotal *prometheus.CounterVec

	// RejectedTotal counts requests that produced no report.
	// Labels: reason
	RejectedTotal *prometheus.CounterVec

	// DryRunsTotal counts simulations by how they ended.
	// Labels: outcome (success, limited, error)
	DryRunsTotal *prometheus.CounterVec

	// RollbacksTotal counts rollback generation attempts.
	// Labels: outcome (success, error)
	RollbacksTotal *prometheus.CounterVec

	// AnalysisSeconds observes end-to-end analysis latency.
	AnalysisSeconds prometheus.Histogram
}

// NewMetrics registers the metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analyses_total",
				Help:      "Total number of safety reports by statement type and risk level",
			},
			[]string{"statement_type", "risk_level"},
		),
		RejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rejected_total",
				Help:      "Total number of analysis requests that produced no report",
			},
			[]string{"reason"},
		),
		DryRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dry_runs_total",
				Help:      "Total number of dry-run simulations by outcome",
			},
			[]string{"outcome"},
		),
		RollbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rollbacks_total",
				Help:      "Total number of rollback generation attempts by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_duration_seconds",
				Help:      "Time taken to compose a safety report",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// Observe records a composed report
func (m *Metrics) Observe(rep *report.SafetyReport, elapsed time.Duration) {
	m.AnalysesTotal.WithLabelValues(rep.Type.String(), string(rep.Level)).Inc()
	m.AnalysisSeconds.Observe(elapsed.Seconds())

	if out := rep.DryRun; out != nil {
		switch {
		case out.Successful:
			m.DryRunsTotal.WithLabelValues("success").Inc()
		case out.Limited():
			m.DryRunsTotal.WithLabelValues("limited").Inc()
		default:
			m.DryRunsTotal.WithLabelValues("error").Inc()
		}
	}

	switch {
	case rep.RollbackError != "":
		m.RollbacksTotal.WithLabelValues("error").Inc()
	case rep.Rollback != nil:
		m.RollbacksTotal.WithLabelValues("success").Inc()
	}
}
