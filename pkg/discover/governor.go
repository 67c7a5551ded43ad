package discover

// Governor bounds runaway collection loops. Tripping it is a policy
// signal that sets the result's Truncated flag, not an error.
type Governor struct {
	// SafeTotalCap is the maximum number of collected items. Zero or
	// negative disables the bound.
	SafeTotalCap int

	// MaxPages is the maximum number of pages per probing loop. Zero or
	// negative disables the bound.
	MaxPages int
}

// ShouldStop reports whether a collection loop must stop.
func (g Governor) ShouldStop(collected, pages int) bool {
	if g.SafeTotalCap > 0 && collected >= g.SafeTotalCap {
		return true
	}
	if g.MaxPages > 0 && pages >= g.MaxPages {
		return true
	}
	return false
}
