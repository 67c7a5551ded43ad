package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/recset/recset/internal/config"
	"github.com/recset/recset/internal/output"
	"github.com/recset/recset/pkg/batch"
	"github.com/recset/recset/pkg/cache"
	"github.com/recset/recset/pkg/client"
	"github.com/recset/recset/pkg/discover"
	"github.com/recset/recset/pkg/logging"
)

// newFetchCommand builds the fetch command.
func newFetchCommand() *cobra.Command {
	var (
		configPath string
		token      string
		queryPath  string
		outputFile string
		format     string
		idsOnly    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Discover all identifiers and fetch their full records",
		Long: `Fetch runs pagination discovery against the search endpoint to collect
the complete identifier set, then retrieves full records in batches
from the batch endpoint.

Authentication is required via bearer token:
  - Use --token flag to provide the token directly
  - Or set the RECSET_TOKEN environment variable

The token is never written to config files, output, or logs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runFetch(ctx, configPath, token, queryPath, outputFile, format, idsOnly)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: .recset.yaml)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (overrides RECSET_TOKEN env var)")
	cmd.Flags().StringVar(&queryPath, "query", "", "Path to a JSON query descriptor (default: {\"query\": \"*\"})")
	cmd.Flags().StringVar(&outputFile, "output", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "ndjson", "Output format: ndjson or csv")
	cmd.Flags().BoolVar(&idsOnly, "ids-only", false, "Stop after discovery and output identifiers")

	return cmd
}

// runFetch executes the fetch command.
func runFetch(ctx context.Context, configPath, tokenFlag, queryPath, outputFile, format string, idsOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	token := getToken(tokenFlag)
	if token == "" {
		return fmt.Errorf("bearer token not found. Set RECSET_TOKEN or use --token flag")
	}

	query, err := loadQuery(queryPath)
	if err != nil {
		return err
	}

	writer, err := newWriter(outputFile, format)
	if err != nil {
		return err
	}
	// The CSV writer emits everything on Close, so its error is part of
	// the result; the deferred close only covers early-error paths.
	writerClosed := false
	defer func() {
		if !writerClosed {
			writer.Close()
		}
	}()
	closeWriter := func() error {
		writerClosed = true
		if err := writer.Close(); err != nil {
			return fmt.Errorf("finalize output: %w", err)
		}
		return nil
	}

	exec, err := client.New(client.Config{
		Token:     token,
		UserAgent: "recset/" + version,
		Retry: client.RetryConfig{
			MaxAttempts:       cfg.Fetch.MaxAttempts,
			InitialBackoff:    cfg.Fetch.InitialBackoff.Std(),
			BackoffMultiplier: 2.0,
		},
	})
	if err != nil {
		return err
	}

	prober := discover.NewProber(exec, cfg.Service.SearchURL, discover.Config{
		MaxSingleLimit: cfg.Fetch.MaxSingleLimit,
		PageSize:       cfg.Fetch.PageSize,
		SafeTotalCap:   cfg.Fetch.SafeTotalCap,
		MaxPages:       cfg.Fetch.MaxPages,
		Timeout:        cfg.Fetch.DiscoverTimeout.Std(),
		PageDelay:      cfg.Fetch.PageDelay.Std(),
	})

	result, err := prober.Discover(ctx, query)
	if err != nil {
		return err
	}

	if result.Truncated {
		logger.Warn().
			Int("identifiers", len(result.Identifiers)).
			Msg("Discovery hit the safety cap, result may be incomplete")
	}

	if idsOnly {
		for _, id := range result.Identifiers {
			if err := writer.Write(map[string]any{"id": id}); err != nil {
				return err
			}
		}
		return closeWriter()
	}

	fetcher := batch.NewFetcher(exec, cfg.Service.BatchURL, batch.Config{
		BatchSize:    cfg.Fetch.BatchSize,
		Timeout:      cfg.Fetch.BatchTimeout.Std(),
		SafeTotalCap: cfg.Fetch.SafeTotalCap,
	})

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, record cache disabled")
		} else {
			fetcher.UseCache(cache.NewManager(redisClient, cfg.Redis.RecordTTL.Std()))
			defer redisClient.Close()
		}
	}

	records, err := fetcher.Fetch(ctx, result.Identifiers)
	if err != nil {
		return err
	}

	for _, record := range records.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if err := closeWriter(); err != nil {
		return err
	}

	logger.Info().
		Int("records", len(records.Records)).
		Bool("truncated", result.Truncated || records.Truncated).
		Str("strategy", result.Strategy).
		Msg("Fetch complete")

	return nil
}

// getToken returns the bearer token from flag or environment variable.
func getToken(flagToken string) string {
	if flagToken != "" {
		return flagToken
	}
	return os.Getenv("RECSET_TOKEN")
}

// loadQuery reads a JSON query descriptor, or returns the default
// match-everything query.
func loadQuery(path string) (discover.Query, error) {
	if path == "" {
		return discover.Query{"query": "*"}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}

	var query discover.Query
	if err := json.Unmarshal(data, &query); err != nil {
		return nil, fmt.Errorf("parse query file: %w", err)
	}

	return query, nil
}

// newWriter builds the output writer for the requested format.
func newWriter(outputFile, format string) (output.Writer, error) {
	switch format {
	case "ndjson":
		if outputFile == "" {
			return output.NewNDJSONWriter(os.Stdout), nil
		}
		return output.NewNDJSONFileWriter(outputFile)
	case "csv":
		if outputFile == "" {
			return output.NewCSVWriter(os.Stdout), nil
		}
		return output.NewCSVFileWriter(outputFile)
	default:
		return nil, fmt.Errorf("unknown output format %q (want ndjson or csv)", format)
	}
}
