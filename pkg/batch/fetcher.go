// Package batch retrieves full records for discovered identifiers in
// fixed-size chunks.
//
// Unlike discovery, any failure here is fatal for the whole fetch. A
// partial record set is never returned: the caller cannot tell from the
// output alone which identifiers would be missing, so silently-missing
// records are worse than a visible failure.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/recset/recset/pkg/cache"
	"github.com/recset/recset/pkg/client"
	"github.com/recset/recset/pkg/discover"
)

// Prometheus metrics for batch operations.
var (
	batchChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recset_batch_chunks_total",
		Help: "Batch chunks processed by source (fetched or cached)",
	}, []string{"source"})

	batchRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recset_batch_records_total",
		Help: "Total records returned by batch fetches",
	})
)

// Executor issues one JSON POST and classifies the outcome. Satisfied
// by *client.Executor.
type Executor interface {
	PostJSON(ctx context.Context, endpoint string, payload any, timeout time.Duration) (any, error)
}

// Config holds the batch fetcher configuration.
type Config struct {
	// BatchSize is the maximum number of identifiers per chunk.
	BatchSize int

	// Timeout applies to each batch call.
	Timeout time.Duration

	// SafeTotalCap bounds the total number of fetched records.
	// Negative disables the bound.
	SafeTotalCap int
}

// DefaultConfig returns safe defaults for batch fetching.
func DefaultConfig() Config {
	return Config{
		BatchSize:    100,
		Timeout:      60 * time.Second,
		SafeTotalCap: 20000,
	}
}

// Result is the terminal outcome of a batch fetch. Truncated reports
// that the safety cap stopped fetching before all chunks were issued.
type Result struct {
	Records   []map[string]any
	Truncated bool
}

// Fetcher retrieves full records for identifiers via the batch endpoint.
type Fetcher struct {
	exec     Executor
	endpoint string
	config   Config
	governor discover.Governor
	cache    *cache.Manager
	logger   zerolog.Logger
}

// NewFetcher creates a batch fetcher for the given endpoint. Zero
// config fields fall back to defaults; the record cap is only disabled
// by an explicitly negative value, never by leaving it unset.
func NewFetcher(exec Executor, endpoint string, config Config) *Fetcher {
	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.SafeTotalCap == 0 {
		config.SafeTotalCap = defaults.SafeTotalCap
	}

	return &Fetcher{
		exec:     exec,
		endpoint: endpoint,
		config:   config,
		governor: discover.Governor{SafeTotalCap: config.SafeTotalCap},
		logger:   log.With().Str("component", "batch").Logger(),
	}
}

// UseCache attaches a record cache. Chunks whose identifiers are all
// cached are served locally; fetched chunks are written back.
func (f *Fetcher) UseCache(m *cache.Manager) {
	f.cache = m
}

// Fetch retrieves full records for the given identifiers, preserving
// input order across chunk boundaries. Any failure aborts the whole
// fetch with no partial result.
func (f *Fetcher) Fetch(ctx context.Context, identifiers []string) (*Result, error) {
	chunks := chunk(identifiers, f.config.BatchSize)
	records := make([]map[string]any, 0, len(identifiers))
	truncated := false

	f.logger.Info().
		Int("identifiers", len(identifiers)).
		Int("chunks", len(chunks)).
		Int("batch_size", f.config.BatchSize).
		Msg("Starting batch fetch")

	for i, ids := range chunks {
		if f.governor.ShouldStop(len(records), 0) {
			f.logger.Info().
				Int("records", len(records)).
				Int("remaining_chunks", len(chunks)-i).
				Msg("Safety governor stopped batch fetch")
			truncated = true
			break
		}

		if f.cache != nil {
			cached, err := f.cache.GetChunk(ctx, ids)
			if err == nil {
				records = append(records, cached...)
				batchChunksTotal.WithLabelValues("cache").Inc()
				f.logger.Debug().Int("chunk", i+1).Int("records", len(cached)).Msg("Chunk served from cache")
				continue
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				// Cache trouble is not fatal; fall through to fetching.
				f.logger.Warn().Err(err).Int("chunk", i+1).Msg("Record cache lookup failed")
			}
		}

		fetched, err := f.fetchChunk(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("batch chunk %d/%d: %w", i+1, len(chunks), err)
		}

		records = append(records, fetched...)
		batchChunksTotal.WithLabelValues("fetched").Inc()
		batchRecordsTotal.Add(float64(len(fetched)))

		f.logger.Debug().
			Int("chunk", i+1).
			Int("chunks", len(chunks)).
			Int("records", len(fetched)).
			Msg("Chunk fetched")

		if f.cache != nil {
			if err := f.cache.PutChunk(ctx, fetched); err != nil {
				f.logger.Warn().Err(err).Int("chunk", i+1).Msg("Record cache write failed")
			}
		}
	}

	f.logger.Info().
		Int("records", len(records)).
		Bool("truncated", truncated).
		Msg("Batch fetch complete")

	return &Result{Records: records, Truncated: truncated}, nil
}

// fetchChunk issues one batch request and validates the response shape.
func (f *Fetcher) fetchChunk(ctx context.Context, ids []string) ([]map[string]any, error) {
	body, err := f.exec.PostJSON(ctx, f.endpoint, map[string]any{"targets": ids}, f.config.Timeout)
	if err != nil {
		return nil, err
	}

	list, ok := body.([]any)
	if !ok {
		return nil, &client.FormatError{
			Endpoint: f.endpoint,
			Reason:   fmt.Sprintf("batch response is %T, want array", body),
		}
	}

	records := make([]map[string]any, 0, len(list))
	for _, v := range list {
		record, ok := v.(map[string]any)
		if !ok {
			return nil, &client.FormatError{
				Endpoint: f.endpoint,
				Reason:   fmt.Sprintf("batch element is %T, want object", v),
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// chunk partitions ids into consecutive groups of at most size,
// preserving order. Chunk count is ceil(len(ids)/size).
func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
