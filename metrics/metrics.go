// Package metrics exposes the library's Prometheus collectors. They are
// registered on the default registry; serving them is the embedding
// application's job (promhttp.Handler()).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts fresh cache hits served without any upstream work.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedguard_cache_hits_total",
		Help: "Fresh cache hits served without contacting the upstream.",
	})

	// CacheMisses counts reads that found no usable cache entry.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedguard_cache_misses_total",
		Help: "Cache reads that found no fresh entry.",
	})

	// StaleServes counts degraded responses served from the stale tier.
	StaleServes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedguard_stale_serves_total",
		Help: "Responses served from the stale cache tier while the upstream was unavailable or throttled.",
	})

	// UpstreamCalls counts HTTP requests actually sent upstream, by
	// endpoint class.
	UpstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedguard_upstream_calls_total",
		Help: "HTTP requests actually issued to the upstream API.",
	}, []string{"class"})

	// ThrottleEvents counts 429 responses observed, by endpoint class.
	ThrottleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedguard_throttle_events_total",
		Help: "Rate-limit (HTTP 429) responses received from the upstream.",
	}, []string{"class"})

	// CircuitShortCircuits counts calls answered without an upstream
	// attempt because the class circuit was open.
	CircuitShortCircuits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedguard_circuit_short_circuits_total",
		Help: "Calls short-circuited because the rate-limit circuit was open.",
	}, []string{"class"})

	// UpstreamSeconds observes time spent waiting on the upstream.
	UpstreamSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedguard_upstream_seconds",
		Help:    "Time spent waiting on upstream HTTP calls.",
		Buckets: prometheus.DefBuckets,
	})

	// GenerationSeconds observes time spent in owner-side generation runs.
	GenerationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedguard_generation_seconds",
		Help:    "Time spent executing owned generation tasks.",
		Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 60},
	})
)
