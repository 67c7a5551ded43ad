package discover

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/recset/recset/pkg/client"
	"github.com/recset/recset/pkg/interpret"
	"github.com/recset/recset/pkg/ratelimit"
)

// Prometheus metrics for discovery operations.
var (
	strategyAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recset_strategy_attempts_total",
		Help: "Strategy attempts by strategy name and outcome",
	}, []string{"strategy", "outcome"})

	discoveryTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recset_discovery_truncated_total",
		Help: "Discovery runs stopped by the safety governor",
	})

	identifiersDiscovered = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recset_identifiers_discovered",
		Help:    "Identifiers collected per discovery run",
		Buckets: []float64{10, 100, 1000, 5000, 10000, 20000},
	})
)

// Executor issues one JSON POST and classifies the outcome. Satisfied
// by *client.Executor.
type Executor interface {
	PostJSON(ctx context.Context, endpoint string, payload any, timeout time.Duration) (any, error)
}

// Config holds the discovery configuration.
type Config struct {
	// MaxSingleLimit is the limit used for the initial single probe. A
	// result shorter than this is exhaustive.
	MaxSingleLimit int

	// PageSize is the per-page limit used by probing loops.
	PageSize int

	// SafeTotalCap bounds the total number of collected identifiers.
	// Negative disables the bound.
	SafeTotalCap int

	// MaxPages bounds the number of pages per probing loop. Negative
	// disables the bound.
	MaxPages int

	// Timeout applies to each discovery call.
	Timeout time.Duration

	// PageDelay is the pause between successive pages within a loop.
	// Negative disables pacing.
	PageDelay time.Duration
}

// DefaultConfig returns safe defaults for discovery.
func DefaultConfig() Config {
	return Config{
		MaxSingleLimit: 2000,
		PageSize:       1000,
		SafeTotalCap:   20000,
		MaxPages:       100,
		Timeout:        30 * time.Second,
		PageDelay:      500 * time.Millisecond,
	}
}

// Prober orchestrates pagination strategies against a search endpoint
// to obtain the complete set of identifiers.
type Prober struct {
	exec     Executor
	endpoint string
	config   Config
	governor Governor
	pacer    *ratelimit.Pacer
	logger   zerolog.Logger
}

// NewProber creates a prober for the given search endpoint. Zero
// config fields fall back to defaults; a governor bound or the page
// delay is only disabled by an explicitly negative value, never by
// leaving it unset.
func NewProber(exec Executor, endpoint string, config Config) *Prober {
	defaults := DefaultConfig()
	if config.MaxSingleLimit <= 0 {
		config.MaxSingleLimit = defaults.MaxSingleLimit
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.SafeTotalCap == 0 {
		config.SafeTotalCap = defaults.SafeTotalCap
	}
	if config.MaxPages == 0 {
		config.MaxPages = defaults.MaxPages
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.PageDelay == 0 {
		config.PageDelay = defaults.PageDelay
	}

	return &Prober{
		exec:     exec,
		endpoint: endpoint,
		config:   config,
		governor: Governor{SafeTotalCap: config.SafeTotalCap, MaxPages: config.MaxPages},
		pacer:    ratelimit.NewPacer(config.PageDelay),
		logger:   log.With().Str("component", "discover").Logger(),
	}
}

// Discover returns the complete (or truncated) identifier set for the
// given query template.
//
// Authorization rejection anywhere aborts the whole discovery. Any
// other failure during a strategy attempt only ends that attempt.
func (p *Prober) Discover(ctx context.Context, query Query) (*Result, error) {
	c := newCollector()
	capped := false

	// Single large probe: a short result is exhaustive.
	q := query.Clone()
	q["limit"] = p.config.MaxSingleLimit

	body, err := p.exec.PostJSON(ctx, p.endpoint, map[string]any(q), p.config.Timeout)
	if err != nil {
		if client.IsAuth(err) || ctx.Err() != nil {
			return nil, err
		}
		p.logger.Warn().Err(err).Msg("Initial probe failed, continuing with pagination probing")
	} else {
		records, info := interpret.Interpret(body)
		c.add(interpret.Identifiers(records))

		if info.HasPagination {
			p.logger.Debug().
				Int("total_records", info.TotalRecords).
				Int("total_pages", info.TotalPages).
				Msg("Server reported pagination metadata")
		}

		if len(records) < p.config.MaxSingleLimit {
			p.logger.Info().
				Int("identifiers", c.size()).
				Msg("Single probe returned everything")
			identifiersDiscovered.Observe(float64(c.size()))
			return &Result{Identifiers: Dedupe(c.ids), Strategy: "single"}, nil
		}

		p.logger.Info().
			Int("identifiers", c.size()).
			Int("limit", p.config.MaxSingleLimit).
			Msg("Single probe hit its limit, probing pagination schemes")
	}

	for _, s := range p.strategies() {
		accepted, truncated, err := s.attempt(ctx, p, query, c)
		if err != nil {
			strategyAttemptsTotal.WithLabelValues(s.name(), "error").Inc()
			return nil, err
		}

		if accepted {
			// Only the accepted strategy's own governor trip counts:
			// a page bound hit while a rejected key replayed known
			// identifiers did not cut anything off.
			if truncated {
				discoveryTruncatedTotal.Inc()
			}
			strategyAttemptsTotal.WithLabelValues(s.name(), "accepted").Inc()
			p.logger.Info().
				Str("strategy", s.name()).
				Int("identifiers", c.size()).
				Bool("truncated", truncated).
				Msg("Pagination strategy accepted")
			identifiersDiscovered.Observe(float64(c.size()))
			return &Result{Identifiers: Dedupe(c.ids), Strategy: s.name(), Truncated: truncated}, nil
		}

		strategyAttemptsTotal.WithLabelValues(s.name(), "rejected").Inc()
	}

	// Nothing yielded more. Reported as complete unless the collected
	// count itself reached the cap, even though the protocol cannot
	// prove completeness.
	if p.governor.ShouldStop(c.size(), 0) {
		capped = true
		discoveryTruncatedTotal.Inc()
	}
	p.logger.Info().
		Int("identifiers", c.size()).
		Bool("truncated", capped).
		Msg("No pagination strategy yielded more identifiers")
	identifiersDiscovered.Observe(float64(c.size()))

	return &Result{Identifiers: Dedupe(c.ids), Truncated: capped}, nil
}

// strategies returns the fixed probing order: offset keys first, then
// page/size combinations, then the enlarged probe.
func (p *Prober) strategies() []strategy {
	return []strategy{
		offsetStrategy{key: "offset"},
		offsetStrategy{key: "start"},
		offsetStrategy{key: "from"},
		pageStrategy{sizeKey: "size", origin: 0},
		pageStrategy{sizeKey: "size", origin: 1},
		pageStrategy{sizeKey: "limit", origin: 0},
		pageStrategy{sizeKey: "limit", origin: 1},
		enlargedStrategy{},
	}
}

// probe issues one probe request and interprets the response shape.
func (p *Prober) probe(ctx context.Context, q Query) ([]any, interpret.PageInfo, error) {
	body, err := p.exec.PostJSON(ctx, p.endpoint, map[string]any(q), p.config.Timeout)
	if err != nil {
		return nil, interpret.PageInfo{}, err
	}
	records, info := interpret.Interpret(body)
	return records, info, nil
}
