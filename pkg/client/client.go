// Package client provides the core HTTP executor with bounded retry,
// failure classification, and request metrics.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for executor operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recset_requests_total",
		Help: "Total requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recset_request_duration_seconds",
		Help:    "Request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recset_errors_total",
		Help: "Total request failures by class",
	}, []string{"class"})
)

// bodyPrefixLen bounds how much of an error response body is carried
// into a StatusError.
const bodyPrefixLen = 300

// Config holds the executor configuration.
type Config struct {
	// Token is the bearer token sent on every request. The executor
	// does not renew or validate it beyond reacting to 401.
	Token string

	// UserAgent identifies the client to the remote service.
	UserAgent string

	// Retry controls transport-failure retries.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		Token:     token,
		UserAgent: "recset/0.1.0",
		Retry:     DefaultRetryConfig(),
	}
}

// Executor issues JSON POST requests against the remote service.
// One executor owns one http.Client for connection reuse; it must not
// be shared across concurrent fetch sessions.
type Executor struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	if cfg.Retry.BackoffMultiplier < 1 {
		return nil, fmt.Errorf("backoff_multiplier must be >= 1 (got %v)", cfg.Retry.BackoffMultiplier)
	}

	logger := log.With().Str("component", "executor").Logger()

	return &Executor{
		// Per-call deadlines come from the caller's timeout argument,
		// not a client-wide one.
		httpClient: &http.Client{},
		config:     cfg,
		logger:     logger,
	}, nil
}

// PostJSON issues one POST with the given JSON-serializable payload and
// returns the decoded response body.
//
// Transport failures are retried up to the configured attempt count
// with exponential backoff. HTTP 401 immediately fails with *AuthError
// and is never retried. Any other non-2xx status fails with
// *StatusError. An undecodable body fails with *FormatError.
func (e *Executor) PostJSON(ctx context.Context, endpoint string, payload any, timeout time.Duration) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &FormatError{Endpoint: endpoint, Reason: "encode request payload", Err: err}
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var last *rawResponse
	var lastErr error

	for attempt := 1; attempt <= e.config.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := e.config.Retry.nextBackoff(attempt - 2)
			retriesTotal.Inc()
			retryBackoffSeconds.Observe(backoff.Seconds())

			e.logger.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying request after backoff")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := e.do(ctx, endpoint, body, timeout)
		if err != nil {
			// Transport-level failure: the only retriable kind.
			lastErr = err
			errorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			e.logger.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("HTTP request failed")
			continue
		}

		last = resp
		break
	}

	if last == nil {
		retryExhaustedTotal.Inc()
		e.logger.Warn().
			Str("endpoint", endpoint).
			Int("max_attempts", e.config.Retry.MaxAttempts).
			Msg("Retry attempts exhausted")
		return nil, &TransportError{
			Endpoint: endpoint,
			Attempts: e.config.Retry.MaxAttempts,
			Err:      fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr),
		}
	}

	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", last.status)).Inc()

	if last.status == http.StatusUnauthorized {
		errorsTotal.WithLabelValues(string(ErrorClassAuth)).Inc()
		e.logger.Error().Str("endpoint", endpoint).Msg("Authorization rejected (401)")
		return nil, &AuthError{Endpoint: endpoint}
	}

	if last.status < 200 || last.status > 299 {
		errorsTotal.WithLabelValues(string(ErrorClassStatus)).Inc()
		e.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", last.status).
			Msg("Non-success status")
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: last.status,
			BodyPrefix: prefix(last.body, bodyPrefixLen),
		}
	}

	var decoded any
	if err := json.Unmarshal(last.body, &decoded); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassFormat)).Inc()
		return nil, &FormatError{Endpoint: endpoint, Reason: "decode response body", Err: err}
	}

	return decoded, nil
}

// rawResponse carries one fully-read HTTP response.
type rawResponse struct {
	status int
	body   []byte
}

// do performs a single attempt, reading the whole body while the
// per-call deadline is active.
func (e *Executor) do(ctx context.Context, endpoint string, body []byte, timeout time.Duration) (*rawResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", e.config.UserAgent)
	if e.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.Token)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// prefix returns at most n bytes of b as a string.
func prefix(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (e *Executor) SetHTTPClient(client *http.Client) {
	e.httpClient = client
}
