// Package discover obtains the complete identifier set from a
// search-style endpoint whose pagination contract is unknown.
//
// The prober first issues one large probe. A result shorter than the
// requested limit is exhaustive and returned immediately. Otherwise it
// walks a fixed, ordered list of pagination strategies — offset keys
// (offset, start, from), page/size combinations, and a last-resort
// enlarged probe — accepting the first one that yields identifiers
// beyond what is already known.
//
// Example usage:
//
//	exec, _ := client.New(client.DefaultConfig(token))
//	prober := discover.NewProber(exec, searchURL, discover.DefaultConfig())
//	result, err := prober.Discover(ctx, discover.Query{"query": "*"})
//
// Authorization failure aborts discovery immediately. Status or format
// failures abort only the active strategy; the prober moves on to the
// next candidate. A safety governor bounds total identifiers and pages,
// turning runaway loops into a reported truncation instead of an error.
package discover
