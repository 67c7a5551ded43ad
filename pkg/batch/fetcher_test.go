package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/recset/recset/internal/testutil"
	"github.com/recset/recset/pkg/client"
)

func genIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%04d", i)
	}
	return ids
}

func testExecutor(t *testing.T) *client.Executor {
	t.Helper()

	exec, err := client.New(client.Config{
		Token:     "test-token",
		UserAgent: "recset-test/0.0.0",
		Retry: client.RetryConfig{
			MaxAttempts:       1,
			InitialBackoff:    time.Millisecond,
			BackoffMultiplier: 2.0,
		},
	})
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}
	return exec
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name      string
		ids       int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 100, nil},
		{"single partial", 7, 100, []int{7}},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"trailing remainder", 250, 100, []int{100, 100, 50}},
		{"size one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunk(genIDs(tt.ids), tt.size)
			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("chunk count = %d, want %d", len(chunks), len(tt.wantSizes))
			}
			for i, want := range tt.wantSizes {
				if len(chunks[i]) != want {
					t.Errorf("chunk %d size = %d, want %d", i, len(chunks[i]), want)
				}
			}
		})
	}
}

func TestFetch_ChunksPreserveOrder(t *testing.T) {
	ids := genIDs(250)
	svc := testutil.NewMockService(ids)
	defer svc.Close()

	fetcher := NewFetcher(testExecutor(t), svc.BatchURL(), Config{BatchSize: 100})

	result, err := fetcher.Fetch(context.Background(), ids)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if len(result.Records) != 250 {
		t.Fatalf("records = %d, want 250", len(result.Records))
	}
	if result.Truncated {
		t.Error("Truncated = true, want false")
	}
	if svc.BatchRequests != 3 {
		t.Errorf("batch requests = %d, want 3", svc.BatchRequests)
	}

	wantSizes := []int{100, 100, 50}
	for i, targets := range svc.BatchTargets {
		if len(targets) != wantSizes[i] {
			t.Errorf("chunk %d targets = %d, want %d", i, len(targets), wantSizes[i])
		}
	}

	// Records come back in input order across chunk boundaries.
	for i, record := range result.Records {
		if got := record["id"]; got != ids[i] {
			t.Fatalf("record %d id = %v, want %s", i, got, ids[i])
		}
	}
}

func TestFetch_EmptyInput(t *testing.T) {
	svc := testutil.NewMockService(nil)
	defer svc.Close()

	fetcher := NewFetcher(testExecutor(t), svc.BatchURL(), Config{})

	result, err := fetcher.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("records = %d, want 0", len(result.Records))
	}
	if svc.BatchRequests != 0 {
		t.Errorf("batch requests = %d, want 0", svc.BatchRequests)
	}
}

func TestFetch_ChunkFailureIsFatal(t *testing.T) {
	ids := genIDs(250)
	svc := testutil.NewMockService(ids)
	svc.BatchStatusAt[2] = 500
	defer svc.Close()

	fetcher := NewFetcher(testExecutor(t), svc.BatchURL(), Config{BatchSize: 100})

	result, err := fetcher.Fetch(context.Background(), ids)
	if err == nil {
		t.Fatal("Fetch() succeeded, want error")
	}
	if result != nil {
		t.Error("Fetch() returned a partial result alongside the error")
	}

	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *client.StatusError", err)
	}
	// Chunk 3 is never attempted.
	if svc.BatchRequests != 2 {
		t.Errorf("batch requests = %d, want 2", svc.BatchRequests)
	}
}

func TestFetch_AuthFailureIsFatal(t *testing.T) {
	ids := genIDs(150)
	svc := testutil.NewMockService(ids)
	svc.BatchStatusAt[2] = 401
	defer svc.Close()

	fetcher := NewFetcher(testExecutor(t), svc.BatchURL(), Config{BatchSize: 100})

	result, err := fetcher.Fetch(context.Background(), ids)
	if err == nil {
		t.Fatal("Fetch() succeeded, want error")
	}
	if result != nil {
		t.Error("Fetch() returned a partial result alongside the error")
	}
	if !client.IsAuth(err) {
		t.Fatalf("error = %v, want *client.AuthError", err)
	}
}

func TestFetch_NonArrayResponseIsFormatError(t *testing.T) {
	svc := testutil.NewMockService(nil)
	defer svc.Close()

	// Point the fetcher at the search endpoint, which answers batch
	// payloads with an object shape.
	svc.WrapKey = "data"

	fetcher := NewFetcher(testExecutor(t), svc.SearchURL(), Config{BatchSize: 100})

	_, err := fetcher.Fetch(context.Background(), genIDs(10))
	var formatErr *client.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error = %v, want *client.FormatError", err)
	}
}

func TestFetch_GovernorTruncates(t *testing.T) {
	ids := genIDs(500)
	svc := testutil.NewMockService(ids)
	defer svc.Close()

	fetcher := NewFetcher(testExecutor(t), svc.BatchURL(), Config{
		BatchSize:    100,
		SafeTotalCap: 250,
	})

	result, err := fetcher.Fetch(context.Background(), ids)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if !result.Truncated {
		t.Error("Truncated = false, want true")
	}
	// The cap is checked before each chunk: 100, 200, 300, stop.
	if len(result.Records) != 300 {
		t.Errorf("records = %d, want 300", len(result.Records))
	}
	if svc.BatchRequests != 3 {
		t.Errorf("batch requests = %d, want 3", svc.BatchRequests)
	}
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(nil, "http://example.invalid/batch", Config{})

	if f.config.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", f.config.BatchSize)
	}
	if f.config.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", f.config.Timeout)
	}
	// An unset cap must not mean an unbounded fetch.
	if f.config.SafeTotalCap != 20000 {
		t.Errorf("SafeTotalCap = %d, want 20000", f.config.SafeTotalCap)
	}
	if !f.governor.ShouldStop(20000, 0) {
		t.Error("governor does not enforce the default cap")
	}

	unbounded := NewFetcher(nil, "http://example.invalid/batch", Config{SafeTotalCap: -1})
	if unbounded.governor.ShouldStop(1<<20, 0) {
		t.Error("negative cap should disable the governor")
	}
}
