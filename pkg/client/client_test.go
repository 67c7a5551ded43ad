package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T, retry RetryConfig) *Executor {
	t.Helper()

	exec, err := New(Config{
		Token:     "test-token",
		UserAgent: "recset-test/0.0.0",
		Retry:     retry,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return exec
}

// fastRetry keeps backoff short enough for unit tests while preserving
// the exponential shape.
func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "valid config",
			config: DefaultConfig("tok"),
		},
		{
			name: "zero attempts",
			config: Config{
				Retry: RetryConfig{MaxAttempts: 0, BackoffMultiplier: 2.0},
			},
			expectError: true,
		},
		{
			name: "multiplier below one",
			config: Config{
				Retry: RetryConfig{MaxAttempts: 3, BackoffMultiplier: 0.5},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if tt.expectError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestPostJSON_Success(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["a", "b", "c"]`))
	}))
	defer server.Close()

	exec := newTestExecutor(t, fastRetry())

	body, err := exec.PostJSON(context.Background(), server.URL, map[string]any{"query": "*"}, 5*time.Second)
	if err != nil {
		t.Fatalf("PostJSON() failed: %v", err)
	}

	list, ok := body.([]any)
	if !ok || len(list) != 3 {
		t.Errorf("body = %v, want 3-element array", body)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
}

func TestPostJSON_AuthErrorNotRetried(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	exec := newTestExecutor(t, fastRetry())

	_, err := exec.PostJSON(context.Background(), server.URL, nil, 5*time.Second)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthError", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (401 must never be retried)", requests)
	}
}

func TestPostJSON_StatusErrorBodyPrefix(t *testing.T) {
	longBody := strings.Repeat("x", 1000)
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(longBody))
	}))
	defer server.Close()

	exec := newTestExecutor(t, fastRetry())

	_, err := exec.PostJSON(context.Background(), server.URL, nil, 5*time.Second)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", statusErr.StatusCode)
	}
	if len(statusErr.BodyPrefix) != 300 {
		t.Errorf("BodyPrefix length = %d, want 300", len(statusErr.BodyPrefix))
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (status errors are not retried)", requests)
	}
}

func TestPostJSON_FormatError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	exec := newTestExecutor(t, fastRetry())

	_, err := exec.PostJSON(context.Background(), server.URL, nil, 5*time.Second)

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error = %v, want *FormatError", err)
	}
}

// droppingServer closes the first n connections, then serves normally.
func droppingServer(t *testing.T, n int, body string) (*httptest.Server, *[]time.Time) {
	t.Helper()

	var mu sync.Mutex
	attempts := &[]time.Time{}
	remaining := n

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*attempts = append(*attempts, time.Now())
		drop := remaining > 0
		if drop {
			remaining--
		}
		mu.Unlock()

		if drop {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("response writer does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack failed: %v", err)
			}
			conn.Close()
			return
		}

		w.Write([]byte(body))
	}))

	return server, attempts
}

func TestPostJSON_RetriesTransportFailures(t *testing.T) {
	server, attempts := droppingServer(t, 2, `["ok"]`)
	defer server.Close()

	exec := newTestExecutor(t, fastRetry())

	body, err := exec.PostJSON(context.Background(), server.URL, nil, 5*time.Second)
	if err != nil {
		t.Fatalf("PostJSON() failed: %v", err)
	}
	if list, ok := body.([]any); !ok || len(list) != 1 {
		t.Errorf("body = %v, want 1-element array", body)
	}

	if len(*attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(*attempts))
	}

	// Exponential backoff: ~50ms before attempt 2, ~100ms before attempt 3.
	gap1 := (*attempts)[1].Sub((*attempts)[0])
	gap2 := (*attempts)[2].Sub((*attempts)[1])

	if gap1 < 40*time.Millisecond || gap1 > 200*time.Millisecond {
		t.Errorf("delay before attempt 2 = %v, want ~50ms", gap1)
	}
	if gap2 < 90*time.Millisecond || gap2 > 400*time.Millisecond {
		t.Errorf("delay before attempt 3 = %v, want ~100ms", gap2)
	}
	if gap2 < gap1 {
		t.Errorf("backoff did not grow: %v then %v", gap1, gap2)
	}
}

func TestPostJSON_RetryExhausted(t *testing.T) {
	server, attempts := droppingServer(t, 100, "")
	defer server.Close()

	exec := newTestExecutor(t, fastRetry())

	_, err := exec.PostJSON(context.Background(), server.URL, nil, 5*time.Second)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if transportErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", transportErr.Attempts)
	}
	if len(*attempts) != 3 {
		t.Errorf("attempts = %d, want 3", len(*attempts))
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Error("error should wrap ErrRetryExhausted")
	}
}

func TestPostJSON_ContextCancelledDuringBackoff(t *testing.T) {
	server, _ := droppingServer(t, 100, "")
	defer server.Close()

	exec := newTestExecutor(t, RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    5 * time.Second,
		BackoffMultiplier: 2.0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := exec.PostJSON(ctx, server.URL, nil, 5*time.Second)
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
}
