// Package observability provides prometheus instrumentation for the task
// pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsTotal counts job submissions by engine, task type and
	// substrate (local/network).
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litesoph_submissions_total",
		Help: "Number of job submissions.",
	}, []string{"engine", "task_type", "substrate"})

	// CompletionsTotal counts runs that finished with return code zero.
	CompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litesoph_completions_total",
		Help: "Number of successful task completions.",
	}, []string{"engine", "task_type"})

	// FailuresTotal counts runs that finished with a nonzero return code
	// or could not be started.
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litesoph_failures_total",
		Help: "Number of failed task runs.",
	}, []string{"engine", "task_type"})
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
