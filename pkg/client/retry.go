package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recset_retries_total",
		Help: "Total number of retry attempts for transport failures",
	})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recset_retry_backoff_seconds",
		Help:    "Backoff duration before retried attempts",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recset_retry_exhausted_total",
		Help: "Total number of requests that exhausted the retry budget",
	})
)

// RetryConfig holds the configuration for transport-failure retries.
// Only network-level failures are retried; HTTP status errors never
// consume retry budget.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	// The delay before retry k (0-indexed) is InitialBackoff * BackoffMultiplier^k.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration:
// 3 attempts with delays of 1s and 2s before the second and third.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// nextBackoff returns the delay to wait before the given retry
// (0-indexed), following the exponential schedule.
func (c RetryConfig) nextBackoff(retry int) time.Duration {
	backoff := c.InitialBackoff
	for i := 0; i < retry; i++ {
		backoff = time.Duration(float64(backoff) * c.BackoffMultiplier)
	}
	return backoff
}
