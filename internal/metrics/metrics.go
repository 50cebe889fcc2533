package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TasksInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "project_management_tasks_in_flight",
	Help: "Detached tasks currently running, by task name",
}, []string{"task"})

var TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "project_management_tasks_finished_total",
	Help: "Detached tasks finished, by task name and result (ok, error, panic)",
}, []string{"task", "result"})

var TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "project_management_task_duration_seconds",
	Help:    "Duration of detached tasks in seconds",
	Buckets: []float64{0.1, 1, 5, 30, 60, 300, 600, 900},
}, []string{"task"})

var ServerWaitOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "project_management_server_wait_outcomes_total",
	Help: "Bounded waits for VM teardown, by outcome (succeeded, timed_out, cancelled)",
}, []string{"outcome"})

var ProjectsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "project_management_projects_created_total",
	Help: "Projects persisted by the creation flow",
})

var ProvisioningFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "project_management_provisioning_failures_total",
	Help: "Auxiliary provisioning steps that failed after the project was persisted, by step",
}, []string{"step"})

var ProjectsDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "project_management_projects_deleted_total",
	Help: "Projects removed by the deletion flow",
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "project_management_http_requests_total",
	Help: "HTTP requests by method, route pattern and status code",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "project_management_http_request_duration_seconds",
	Help:    "HTTP request latency by method and route pattern",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
