package discover

import "maps"

// Query is the caller-supplied filter/sort/limit template sent to the
// search endpoint. It is never mutated by the prober: each strategy
// attempt works on a clone with its own pagination parameters added.
type Query map[string]any

// Clone returns a copy of the query. Strategies only add top-level
// pagination keys, so a top-level copy is sufficient to protect the
// template.
func (q Query) Clone() Query {
	if q == nil {
		return Query{}
	}
	return Query(maps.Clone(map[string]any(q)))
}

// Result is the terminal outcome of a discovery run.
//
// Truncated=true means the safety cap or page bound tripped before the
// server signaled completion. Truncated=false does NOT distinguish a
// proven-complete set (single probe returned fewer than its limit) from
// a set no strategy could grow further; the underlying protocol offers
// no way to tell the two apart.
type Result struct {
	// Identifiers is deduplicated and preserves first-seen order.
	Identifiers []string

	// Strategy names the accepted strategy: "single" when the initial
	// probe was exhaustive, e.g. "offset:start" or "page:size/0" for a
	// probing win, "enlarged" for the last-resort probe, or "" when no
	// strategy yielded more than the initial probe.
	Strategy string

	// Truncated reports that the safety governor stopped collection.
	Truncated bool
}
