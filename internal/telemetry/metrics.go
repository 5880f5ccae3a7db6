// Package telemetry exposes Prometheus instrumentation for the job pipeline.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsStarted       = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_started_total", Help: "Jobs transitioned pending to running"})
	JobsCompleted     = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_completed_total", Help: "Jobs completed successfully"})
	JobsFailed        = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_failed_total", Help: "Jobs that reached the failed state"})
	JobsCancelled     = prometheus.NewCounter(prometheus.CounterOpts{Name: "jobs_cancelled_total", Help: "Jobs cancelled while running"})
	JobRetries        = prometheus.NewCounter(prometheus.CounterOpts{Name: "job_retries_total", Help: "Execution attempts retried after an unexpected fault"})
	DispatchEnqueued  = prometheus.NewCounter(prometheus.CounterOpts{Name: "dispatch_enqueued_total", Help: "Execution requests pushed to the dispatch queue"})
	DispatchDepth     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "dispatch_queue_depth", Help: "Execution requests waiting in the dispatch queue"})
	BusDroppedEvents  = prometheus.NewCounter(prometheus.CounterOpts{Name: "bus_dropped_events_total", Help: "Events dropped because a subscriber queue was full"})
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{Name: "gateway_active_connections", Help: "Open WebSocket connections"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsStarted,
			JobsCompleted,
			JobsFailed,
			JobsCancelled,
			JobRetries,
			DispatchEnqueued,
			DispatchDepth,
			BusDroppedEvents,
			ActiveConnections,
		)
	})
	return promhttp.Handler()
}
