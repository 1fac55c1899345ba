package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolverRuns counts finished solve runs by final status
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_runs_total", Help: "Solve runs by final status."},
		[]string{"status"},
	)
	// SolveDuration tracks wall time of a whole solve in seconds
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solver_run_duration_seconds", Help: "Solve wall time in seconds.", Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60}},
	)
	// SimulationTicks tracks ticks per simulation round
	SimulationTicks = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solver_simulation_ticks", Help: "Ticks needed by one simulation round.", Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}},
	)
	// SolverImprovements counts strictly improving iterations
	SolverImprovements = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_improvements_total", Help: "Iterations that improved the best score."},
	)
	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
	// BestScore is the best makespan of the most recently finished run
	BestScore = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "solver_best_score", Help: "Best score of the last finished run."},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolverRuns)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SimulationTicks)
		Registry.MustRegister(SolverImprovements)
		Registry.MustRegister(BestScore)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// SolveObserver feeds engine progress into the solver collectors.
type SolveObserver struct{}

func (SolveObserver) IterationDone(_ int, _ float64, ticks int) {
	SimulationTicks.Observe(float64(ticks))
}

func (SolveObserver) Improved(_ int, _ float64) {
	SolverImprovements.Inc()
}
