package discover

// Dedupe returns ids with duplicates removed, keeping the first
// occurrence of each and preserving order. Pure function, O(n).
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// collector accumulates identifiers across strategy attempts,
// deduplicating on insert so acceptance checks compare unique counts.
type collector struct {
	seen map[string]struct{}
	ids  []string
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

// add inserts ids not seen before and returns how many were new.
func (c *collector) add(ids []string) int {
	added := 0
	for _, id := range ids {
		if _, ok := c.seen[id]; ok {
			continue
		}
		c.seen[id] = struct{}{}
		c.ids = append(c.ids, id)
		added++
	}
	return added
}

func (c *collector) size() int {
	return len(c.ids)
}
