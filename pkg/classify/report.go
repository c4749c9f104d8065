package classify

import "github.com/oisee/bindiffcore/pkg/match"

// Report is the whole-diff summary computed over a committed match.Set:
// per-step histograms plus an overall similarity/confidence pair.
type Report struct {
	FunctionStepHistogram   map[string]int
	BasicBlockStepHistogram map[string]int

	MatchedFunctions  int
	PrimaryFunctions  int
	SecondaryFunctions int

	MatchedBasicBlocks int
	MatchedInstructions int

	Similarity float64
	Confidence float64
}

// Summarize builds a Report from set's committed fixed points. primaryTotal
// and secondaryTotal are the full function counts on each side (matched and
// unmatched), used as the denominator for the overall similarity score.
func Summarize(set *match.Set, primaryTotal, secondaryTotal int) Report {
	r := Report{
		FunctionStepHistogram:   map[string]int{},
		BasicBlockStepHistogram: map[string]int{},
		PrimaryFunctions:        primaryTotal,
		SecondaryFunctions:      secondaryTotal,
	}

	var confidenceSum float64
	for _, fp := range set.FixedPoints() {
		r.MatchedFunctions++
		r.FunctionStepHistogram[fp.StepID]++
		confidenceSum += fp.Confidence
		for _, bb := range fp.BasicBlocks {
			r.MatchedBasicBlocks++
			r.BasicBlockStepHistogram[bb.StepID]++
			r.MatchedInstructions += len(bb.InstructionPairs)
		}
	}

	r.Similarity = diffSimilarity(set, primaryTotal, secondaryTotal)
	if r.MatchedFunctions > 0 {
		r.Confidence = confidenceSum / float64(r.MatchedFunctions)
	}
	return r
}

// diffSimilarity is the bounded-in-[0,1] overall similarity: twice the
// matched function count over the sum of both sides' totals, weighted by
// each fixed point's own similarity score so that sloppy matches pull the
// aggregate down rather than counting as full credit.
func diffSimilarity(set *match.Set, primaryTotal, secondaryTotal int) float64 {
	total := primaryTotal + secondaryTotal
	if total == 0 {
		return 1
	}
	var weighted float64
	for _, fp := range set.FixedPoints() {
		weighted += fp.Similarity
	}
	s := (2 * weighted) / float64(total)
	if s > 1 {
		s = 1
	}
	if s < 0 {
		s = 0
	}
	return s
}
