// Package metrics provides the centralized Prometheus registry for
// recset. All metrics are defined in their respective packages (client,
// discover, batch, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by recset.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - recset_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - recset_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - recset_errors_total{class} (Counter): Failures by class (auth, status, transport, format)
//
// Retry Metrics (pkg/client):
//   - recset_retries_total (Counter): Retry attempts for transport failures
//   - recset_retry_backoff_seconds (Histogram): Backoff duration before retried attempts
//   - recset_retry_exhausted_total (Counter): Requests that exhausted the retry budget
//
// Discovery Metrics (pkg/discover):
//   - recset_strategy_attempts_total{strategy, outcome} (Counter): Strategy attempts by outcome
//     (accepted, rejected, error)
//   - recset_discovery_truncated_total (Counter): Discovery runs stopped by the safety governor
//   - recset_identifiers_discovered (Histogram): Identifiers collected per discovery run
//
// Batch Metrics (pkg/batch):
//   - recset_batch_chunks_total{source} (Counter): Chunks by source (fetched, cache)
//   - recset_batch_records_total (Counter): Records returned by batch fetches
//
// Record Cache Metrics (pkg/cache):
//   - recset_record_cache_hits_total (Counter): Records served from cache
//   - recset_record_cache_misses_total (Counter): Cache misses
//   - recset_record_cache_stored_total (Counter): Records written to cache
//   - recset_record_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Strategy acceptance by name
//   sum by (strategy) (recset_strategy_attempts_total{outcome="accepted"})
//
//   # Transport retry rate
//   rate(recset_retries_total[5m])
//
//   # Record cache hit rate
//   sum(rate(recset_record_cache_hits_total[5m])) /
//   (sum(rate(recset_record_cache_hits_total[5m])) + sum(rate(recset_record_cache_misses_total[5m])))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(recset_request_duration_seconds_bucket[5m]))
