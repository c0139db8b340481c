// Package metrics exposes Prometheus counters and gauges for the
// trap ingestion pipeline, trimmed to what this core's components
// actually emit.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every counter/gauge this core registers.
type Metrics struct {
	TrapsIngested  *prometheus.CounterVec
	TrapsDropped   *prometheus.CounterVec
	TrapsSilenced  *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
	BatchDuration  prometheus.Histogram
	ForwardFailures prometheus.Counter
}

// New registers and returns the metric set. Call once per process.
func New() *Metrics {
	return &Metrics{
		TrapsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snmptrapd",
			Name:      "traps_ingested_total",
			Help:      "Traps successfully parsed and enqueued, by source.",
		}, []string{"source"}),
		TrapsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snmptrapd",
			Name:      "traps_dropped_total",
			Help:      "Traps dropped before persistence, by source and reason.",
		}, []string{"source", "reason"}),
		TrapsSilenced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snmptrapd",
			Name:      "traps_silenced_total",
			Help:      "Storm-silencing transitions, by source.",
		}, []string{"source"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "snmptrapd",
			Name:      "dispatcher_queue_depth",
			Help:      "Current number of tasks awaiting a worker.",
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snmptrapd",
			Name:      "worker_tick_duration_seconds",
			Help:      "Time spent processing one producer tick's tasks.",
			Buckets:   prometheus.DefBuckets,
		}),
		ForwardFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "snmptrapd",
			Name:      "forward_failures_total",
			Help:      "Forwarder invocation failures.",
		}),
	}
}

// Server wraps promhttp.Handler behind a plain net/http.Server, in the
// teacher's MetricsServer style.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics HTTP server listening on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the server in a background goroutine; errors other than
// ErrServerClosed are sent to errc.
func (s *Server) Start(errc chan<- error) {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
