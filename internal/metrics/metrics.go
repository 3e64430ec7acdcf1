// Package metrics exposes Prometheus instrumentation for derivation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts derivation workflow runs by job and status
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paged_content_derivation_runs_total",
		Help: "Derivation workflow runs by job type and status",
	}, []string{"job", "status"})

	// RunDuration observes derivation workflow duration by job
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paged_content_derivation_run_duration_seconds",
		Help:    "Derivation workflow duration by job type",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// ObserveRun records one workflow run
func ObserveRun(job string, success bool, start time.Time) {
	status := "success"
	if !success {
		status = "failure"
	}
	RunsTotal.WithLabelValues(job, status).Inc()
	RunDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}
