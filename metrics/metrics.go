package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AssistRequestsTotal counts assistance requests by outcome.
	AssistRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dsa",
		Subsystem: "assist",
		Name:      "requests_total",
		Help:      "Total assistance requests, labeled by outcome (cache_hit, generated, fallback, error).",
	}, []string{"outcome"})

	// InferenceDurationSeconds is the wall time of one inference-endpoint call.
	InferenceDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dsa",
		Subsystem: "assist",
		Name:      "inference_duration_seconds",
		Help:      "End-to-end time of one streamed inference call.",
		// Local model inference runs for seconds to minutes, so buckets are coarse.
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	// StreamFragmentsTotal counts individual data fragments relayed to clients.
	StreamFragmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dsa",
		Subsystem: "assist",
		Name:      "stream_fragments_total",
		Help:      "Total response fragments relayed to streaming clients.",
	})

	// CacheWriteErrorsTotal counts failed response-store writes. Writes are an
	// optimization, so failures are counted rather than surfaced.
	CacheWriteErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dsa",
		Subsystem: "assist",
		Name:      "cache_write_errors_total",
		Help:      "Total failed single-slot cache writes.",
	})
)

// Register registers assist metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AssistRequestsTotal,
			InferenceDurationSeconds,
			StreamFragmentsTotal,
			CacheWriteErrorsTotal,
		)
	})
}
