package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline collectors. Registered with the default registry so both the
// dispatcher/worker/reporter processes and the API expose them without
// extra wiring.
var (
	TasksClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_tasks_claimed_total",
		Help: "Number of relation tasks claimed by workers.",
	})

	TasksResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_tasks_resolved_total",
		Help: "Number of relation tasks resolved, partitioned by terminal status.",
	}, []string{"status"})

	TaskRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_task_retries_total",
		Help: "Number of relation task executions released for retry.",
	})

	ScansDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_scans_dispatched_total",
		Help: "Number of scans fanned out into relation tasks.",
	})

	ScansFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_scans_finished_total",
		Help: "Number of scans that reached a terminal status, partitioned by status.",
	}, []string{"status"})

	ReportsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_reports_generated_total",
		Help: "Number of compliance reports generated.",
	})

	ReviewDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_review_decisions_total",
		Help: "Number of human review decisions recorded, partitioned by decision.",
	}, []string{"decision"})
)

// NewPrometheusMetricsHandler returns the handler serving the default
// prometheus registry.
func NewPrometheusMetricsHandler() http.Handler {
	return promhttp.Handler()
}
