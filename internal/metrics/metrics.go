// Package metrics exposes prometheus collectors for refinement runs and the
// HTTP API.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated registry served on /metrics.
	Registry = prometheus.NewRegistry()

	// Generations counts finished generations.
	Generations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "refinement_generations_total", Help: "Total refinement generations."},
	)
	// Candidates counts candidates by acceptance outcome.
	Candidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "refinement_candidates_total", Help: "Refinement candidates by outcome."},
		[]string{"outcome"},
	)
	// BestCost tracks the total cost of the best individual of the latest run.
	BestCost = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "refinement_best_cost", Help: "Total cost of the best individual."},
	)
	// GenerationDuration records the time spent generating one candidate.
	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refinement_generation_duration_seconds",
			Help:    "Duration of one ruin and recreate generation in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
	// Runs counts solver runs by result.
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "refinement_runs_total", Help: "Refinement runs by result."},
		[]string{"result"},
	)

	// HTTPRequests counts requests by method, path and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeDiscarded = "discarded"
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. It is safe to call
// more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Generations)
		Registry.MustRegister(Candidates)
		Registry.MustRegister(BestCost)
		Registry.MustRegister(GenerationDuration)
		Registry.MustRegister(Runs)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
