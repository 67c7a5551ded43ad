package discover

import (
	"context"
	"fmt"

	"github.com/recset/recset/pkg/client"
	"github.com/recset/recset/pkg/interpret"
)

// strategy is one candidate pagination convention probed against the
// search endpoint. Attempts collect into c; accepted means the attempt
// grew the known set. A non-nil error is always fatal for the whole
// discovery (authorization rejection or cancellation); recoverable
// failures end the attempt silently.
type strategy interface {
	name() string
	attempt(ctx context.Context, p *Prober, query Query, c *collector) (accepted, truncated bool, err error)
}

// offsetStrategy pages through results with one candidate offset key,
// starting at the number of identifiers already known.
type offsetStrategy struct {
	key string
}

func (s offsetStrategy) name() string { return "offset:" + s.key }

func (s offsetStrategy) attempt(ctx context.Context, p *Prober, query Query, c *collector) (bool, bool, error) {
	before := c.size()
	offset := before
	truncated, err := p.pageLoop(ctx, query, c, s.name(), func(q Query) {
		q["limit"] = p.config.PageSize
		q[s.key] = offset
	}, func(pageLen int) {
		offset += pageLen
	})
	return c.size() > before, truncated, err
}

// pageStrategy pages through results with an incrementing page index
// for one size-key / origin combination.
type pageStrategy struct {
	sizeKey string
	origin  int
}

func (s pageStrategy) name() string {
	return fmt.Sprintf("page:%s/%d", s.sizeKey, s.origin)
}

func (s pageStrategy) attempt(ctx context.Context, p *Prober, query Query, c *collector) (bool, bool, error) {
	before := c.size()
	index := s.origin
	truncated, err := p.pageLoop(ctx, query, c, s.name(), func(q Query) {
		q[s.sizeKey] = p.config.PageSize
		q["page"] = index
	}, func(pageLen int) {
		index++
	})
	return c.size() > before, truncated, err
}

// enlargedStrategy is the last resort: one request with a limit raised
// toward the safety cap, accepted only if it returns strictly more
// identifiers than currently held.
type enlargedStrategy struct{}

func (s enlargedStrategy) name() string { return "enlarged" }

func (s enlargedStrategy) attempt(ctx context.Context, p *Prober, query Query, c *collector) (bool, bool, error) {
	limit := enlargedProbeLimit
	if p.config.SafeTotalCap > 0 && p.config.SafeTotalCap < limit {
		limit = p.config.SafeTotalCap
	}
	if limit <= p.config.MaxSingleLimit {
		return false, false, nil
	}

	q := query.Clone()
	q["limit"] = limit

	records, _, err := p.probe(ctx, q)
	if err != nil {
		if client.IsAuth(err) || ctx.Err() != nil {
			return false, false, err
		}
		p.logger.Debug().Err(err).Str("strategy", s.name()).Msg("Enlarged probe failed")
		return false, false, nil
	}

	before := c.size()
	c.add(interpret.Identifiers(records))
	return c.size() > before, false, nil
}

// enlargedProbeLimit caps the last-resort probe.
const enlargedProbeLimit = 5000

// pageLoop drives one strategy's page loop. setParams adds the
// strategy's pagination parameters to a cloned query; advance moves the
// strategy's position by the raw page length.
//
// The loop stops on: governor trip, non-success status, malformed
// body, empty page, or a page shorter than the configured page size.
// Only authorization rejection and cancellation surface as errors.
func (p *Prober) pageLoop(ctx context.Context, query Query, c *collector, name string, setParams func(Query), advance func(int)) (bool, error) {
	pages := 0

	for {
		if p.governor.ShouldStop(c.size(), pages) {
			p.logger.Info().
				Str("strategy", name).
				Int("collected", c.size()).
				Int("pages", pages).
				Msg("Safety governor stopped probing")
			return true, nil
		}

		q := query.Clone()
		setParams(q)

		records, _, err := p.probe(ctx, q)
		if err != nil {
			if client.IsAuth(err) || ctx.Err() != nil {
				return false, err
			}
			p.logger.Debug().Err(err).Str("strategy", name).Msg("Probe attempt failed")
			return false, nil
		}

		if len(records) == 0 {
			return false, nil
		}

		c.add(interpret.Identifiers(records))
		advance(len(records))
		pages++

		if len(records) < p.config.PageSize {
			// Short page: the server has no more to give this way.
			return false, nil
		}

		if err := p.pacer.Wait(ctx); err != nil {
			return false, err
		}
	}
}
