package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the executor.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassAuth represents an authorization rejection (HTTP 401).
	// Fatal for the whole session, never retried.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassStatus represents a non-2xx response other than 401.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassTransport represents a network-level failure that
	// persisted past the retry budget.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassFormat represents a response body that is not JSON or
	// not shaped as expected.
	ErrorClassFormat ErrorClass = "format"
)

// AuthError indicates the service rejected the bearer token (HTTP 401).
// It aborts the entire session: no retry, no fallback strategy.
type AuthError struct {
	Endpoint string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization rejected (401) by %s: token invalid or expired", e.Endpoint)
}

// StatusError indicates a non-success HTTP status other than 401.
// BodyPrefix carries up to the first 300 bytes of the response body
// for diagnostics.
type StatusError struct {
	Endpoint   string
	StatusCode int
	BodyPrefix string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.BodyPrefix)
}

// TransportError indicates a network-level failure that survived the
// full retry budget.
type TransportError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unreachable after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FormatError indicates a response body that could not be decoded or
// did not have the expected shape.
type FormatError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s response format: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s response format: %s", e.Endpoint, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Classify returns the error class for a failure produced by this
// package, or "" for any other error.
func Classify(err error) ErrorClass {
	var authErr *AuthError
	var statusErr *StatusError
	var transportErr *TransportError
	var formatErr *FormatError

	switch {
	case errors.As(err, &authErr):
		return ErrorClassAuth
	case errors.As(err, &statusErr):
		return ErrorClassStatus
	case errors.As(err, &transportErr):
		return ErrorClassTransport
	case errors.As(err, &formatErr):
		return ErrorClassFormat
	default:
		return ""
	}
}

// IsAuth reports whether err carries an authorization rejection.
// Callers use this to distinguish the one failure that always aborts
// the whole session from failures that only abort the current strategy.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
