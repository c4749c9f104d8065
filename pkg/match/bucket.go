package match

import "sort"

// candidate is one committable pair produced by bucketCommitBest.
type candidate struct {
	Primary, Secondary uint32
}

// address/overlap let bucketCommitBest apply its tie-break rule
// without depending on whether the indices are call-graph or flow-graph
// vertices.
type tieBreak struct {
	// address returns a value used for the lexicographic tie-break.
	address func(side int, v uint32) uint64
	// overlap returns the propagation overlap score for a candidate pair
	// (highest wins); nil means every pair scores 0.
	overlap func(p, s uint32) int
}

// bucketCommitBest groups primaryIDs/secondaryIDs by sig and, for every
// key present on both sides, commits at most one pair: the bucket's sole
// member when it is 1x1, or the tie-break winner when larger. A bucket
// with no unambiguous winner is skipped entirely — the unmatched
// candidates remain available to later steps.
func bucketCommitBest(primaryIDs, secondaryIDs []uint32, sig func(side int, v uint32) (string, bool), tb tieBreak) []candidate {
	primaryBuckets := map[string][]uint32{}
	for _, p := range primaryIDs {
		if key, ok := sig(0, p); ok {
			primaryBuckets[key] = append(primaryBuckets[key], p)
		}
	}
	secondaryBuckets := map[string][]uint32{}
	for _, s := range secondaryIDs {
		if key, ok := sig(1, s); ok {
			secondaryBuckets[key] = append(secondaryBuckets[key], s)
		}
	}

	var keys []string
	for k := range primaryBuckets {
		if _, ok := secondaryBuckets[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []candidate
	for _, k := range keys {
		ps := primaryBuckets[k]
		ss := secondaryBuckets[k]
		if len(ps) == 1 && len(ss) == 1 {
			out = append(out, candidate{ps[0], ss[0]})
			continue
		}
		if best, ok := bestPair(ps, ss, tb); ok {
			out = append(out, best)
		}
	}
	return out
}

// bestPair applies the (a) highest call-overlap, then (b) lexicographic
// address order tie-break across every pair in the bucket, returning
// ok=false if no unambiguous winner exists.
func bestPair(ps, ss []uint32, tb tieBreak) (candidate, bool) {
	type scored struct {
		c            candidate
		overlap      int
		addrP, addrS uint64
	}
	var all []scored
	for _, p := range ps {
		for _, s := range ss {
			ov := 0
			if tb.overlap != nil {
				ov = tb.overlap(p, s)
			}
			var ap, as uint64
			if tb.address != nil {
				ap = tb.address(0, p)
				as = tb.address(1, s)
			}
			all = append(all, scored{candidate{p, s}, ov, ap, as})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].overlap != all[j].overlap {
			return all[i].overlap > all[j].overlap
		}
		if all[i].addrP != all[j].addrP {
			return all[i].addrP < all[j].addrP
		}
		return all[i].addrS < all[j].addrS
	})
	if len(all) == 0 {
		return candidate{}, false
	}
	if len(all) == 1 {
		return all[0].c, true
	}
	best, second := all[0], all[1]
	if best.overlap == second.overlap && best.addrP == second.addrP && best.addrS == second.addrS {
		return candidate{}, false
	}
	return best.c, true
}

func removeAll(ids []uint32, remove map[uint32]bool) []uint32 {
	out := ids[:0]
	for _, id := range ids {
		if !remove[id] {
			out = append(out, id)
		}
	}
	return out
}
