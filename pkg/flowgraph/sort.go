package flowgraph

import "sort"

// sortStableByAddress sorts call levels by target address, stably —
// call levels are not necessarily unique per address, and a non-stable
// sort here has historically produced platform-dependent diff results.
func sortStableByAddress(levels []CallLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Address < levels[j].Address
	})
}
