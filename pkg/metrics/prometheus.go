package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus collectors for run progress. Registered on the default
// registry; the optional /metrics listener exposes them.
var (
	Attempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netcover",
		Name:      "attempts_total",
		Help:      "Sampling attempts made.",
	})
	PathsFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netcover",
		Name:      "paths_found_total",
		Help:      "Paths discovered by the finder.",
	})
	UniquePaths = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netcover",
		Name:      "unique_paths_total",
		Help:      "Accepted paths: coverage-improving, with a previously unseen content hash.",
	})
	FailedAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netcover",
		Name:      "failed_attempts_total",
		Help:      "Attempts that produced no pair or no path.",
	})
	CoverageFraction = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "netcover",
		Name:      "coverage_fraction",
		Help:      "Current overall coverage fraction of the active run.",
	})
	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netcover",
		Name:      "validation_errors_total",
		Help:      "Validation findings by severity.",
	}, []string{"severity"})
)

// Handler returns the Prometheus scrape handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a blocking /metrics listener on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
