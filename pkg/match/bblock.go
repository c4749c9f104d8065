package match

import (
	"github.com/oisee/bindiffcore/pkg/flowgraph"
	"github.com/oisee/bindiffcore/pkg/inst"
	"github.com/oisee/bindiffcore/pkg/steps"
)

// runBasicBlockPipeline matches vertices between two functions' flow
// graphs using bbSteps in declaration order, and computes the
// instruction-level LCS for every committed pair.
func runBasicBlockPipeline(primary, secondary *flowgraph.Graph, bbSteps []steps.BasicBlockStep) []BasicBlockFixedPoint {
	if primary == nil || secondary == nil || primary.Discarded || secondary.Discarded {
		return nil
	}

	unmatchedP := allIndices(len(primary.Vertices))
	unmatchedS := allIndices(len(secondary.Vertices))
	matchedP := map[uint32]bool{}
	matchedS := map[uint32]bool{}

	var results []BasicBlockFixedPoint
	for _, step := range bbSteps {
		sig := func(side int, v uint32) (string, bool) {
			g := primary
			if side == 1 {
				g = secondary
			}
			return step.Signature(steps.BlockContext{Flow: g, VertexIndex: v})
		}
		tb := tieBreak{
			address: func(side int, v uint32) uint64 {
				g := primary
				if side == 1 {
					g = secondary
				}
				return uint64(g.Instructions[g.Vertices[v].InstrStart].Address())
			},
		}
		commits := bucketCommitBest(unmatchedP, unmatchedS, sig, tb)
		if len(commits) == 0 {
			continue
		}
		rmP := map[uint32]bool{}
		rmS := map[uint32]bool{}
		for _, c := range commits {
			if matchedP[c.Primary] || matchedS[c.Secondary] {
				continue
			}
			matchedP[c.Primary] = true
			matchedS[c.Secondary] = true
			rmP[c.Primary] = true
			rmS[c.Secondary] = true

			primaryInstrs := primary.InstructionRange(c.Primary)
			secondaryInstrs := secondary.InstructionRange(c.Secondary)
			pairs := inst.LCS(primaryInstrs, secondaryInstrs)
			results = append(results, BasicBlockFixedPoint{
				PrimaryVertex:              c.Primary,
				SecondaryVertex:            c.Secondary,
				PrimaryAddress:             primaryInstrs[0].Address(),
				SecondaryAddress:           secondaryInstrs[0].Address(),
				StepID:                     step.ID,
				Confidence:                 step.Confidence,
				InstructionPairs:           pairs,
				PrimaryInstructionCount:    len(primaryInstrs),
				SecondaryInstructionCount:  len(secondaryInstrs),
			})
		}
		unmatchedP = removeAll(unmatchedP, rmP)
		unmatchedS = removeAll(unmatchedS, rmS)
	}
	return results
}

func allIndices(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}
