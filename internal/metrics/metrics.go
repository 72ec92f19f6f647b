// Package metrics holds the Prometheus collectors shared by the attempt,
// reporting and HTTP layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// finalizations counts attempt finalizations.
	// Labels: outcome (completed, cached, failed)
	finalizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diagnostica",
		Subsystem: "attempt",
		Name:      "finalizations_total",
		Help:      "Attempt finalizations by outcome",
	}, []string{"outcome"})

	// auditFlags counts responses graded without a usable answer key.
	// Labels: reason
	auditFlags = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diagnostica",
		Subsystem: "attempt",
		Name:      "audit_flags_total",
		Help:      "Responses flagged for audit during normalization",
	}, []string{"reason"})

	// diagnoses counts competency verdicts.
	// Labels: state
	diagnoses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diagnostica",
		Subsystem: "engine",
		Name:      "diagnoses_total",
		Help:      "Competency diagnoses by state",
	}, []string{"state"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "diagnostica",
		Subsystem: "engine",
		Name:      "evaluation_duration_seconds",
		Help:      "Time to evaluate one attempt",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// reportDuration measures cohort report builds.
	// Labels: status (ok, error)
	reportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "diagnostica",
		Subsystem: "cohort",
		Name:      "report_duration_seconds",
		Help:      "Time to build a cohort report",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"status"})

	// narrations counts remediation narratives by source.
	// Labels: source (template, llm, fallback)
	narrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diagnostica",
		Subsystem: "remediation",
		Name:      "narrations_total",
		Help:      "Remediation narratives by source",
	}, []string{"source"})
)

// RecordFinalization increments the finalization counter.
func RecordFinalization(outcome string) {
	finalizations.WithLabelValues(outcome).Inc()
}

// RecordAuditFlag increments the audit counter.
func RecordAuditFlag(reason string) {
	auditFlags.WithLabelValues(reason).Inc()
}

// RecordDiagnosis increments the per-state diagnosis counter.
func RecordDiagnosis(state string) {
	diagnoses.WithLabelValues(state).Inc()
}

// RecordEvaluation observes one evaluation's duration.
func RecordEvaluation(seconds float64) {
	evaluationDuration.Observe(seconds)
}

// RecordReport observes one report build.
func RecordReport(status string, seconds float64) {
	reportDuration.WithLabelValues(status).Observe(seconds)
}

// RecordNarration increments the narration counter.
func RecordNarration(source string) {
	narrations.WithLabelValues(source).Inc()
}
