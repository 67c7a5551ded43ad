package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// recordCacheHits tracks records served from cache.
	recordCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recset_record_cache_hits_total",
			Help: "Total number of records served from the record cache",
		},
	)

	// recordCacheMisses tracks lookups that required a fetch.
	recordCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recset_record_cache_misses_total",
			Help: "Total number of record cache misses",
		},
	)

	// recordCacheStored tracks records written to the cache.
	recordCacheStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recset_record_cache_stored_total",
			Help: "Total number of records written to the record cache",
		},
	)

	// recordCacheErrors tracks cache operation errors.
	recordCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recset_record_cache_errors_total",
			Help: "Total number of record cache operation errors",
		},
		[]string{"operation"}, // "get", "mget", "set", "delete"
	)
)
