package files

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	partialFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docudir_partial_failures_total",
		Help: "Multi-step file operations that failed after an earlier step had been applied.",
	}, []string{"operation", "step"})

	reconcileFindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docudir_reconcile_findings_total",
		Help: "Inconsistencies between file metadata and blobs found by reconciliation.",
	}, []string{"kind"})
)
