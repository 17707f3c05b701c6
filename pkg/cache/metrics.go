package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts fresh entries served without contacting the API.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_response_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	// CacheMisses counts lookups that found nothing.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_response_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// Revalidated counts 304 responses answered from a stale entry.
	Revalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_response_cache_revalidated_total",
		Help: "Total number of stale entries revalidated with a 304",
	})

	// CacheErrors counts Redis and encoding failures by operation.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_response_cache_errors_total",
		Help: "Total number of response cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)
