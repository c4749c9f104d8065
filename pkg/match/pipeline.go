package match

import (
	"context"

	"github.com/oisee/bindiffcore/pkg/callgraph"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
	"github.com/oisee/bindiffcore/pkg/steps"
)

// ManualMatch is a collaborator-supplied function pair admitted before the
// ordered step loop runs.
type ManualMatch struct {
	PrimaryVertex, SecondaryVertex uint32
}

// Pipeline holds the two call graphs and the ordered step catalogues for
// one diff.
type Pipeline struct {
	Primary, Secondary *callgraph.Graph
	FunctionSteps      []steps.FunctionStep
	BasicBlockSteps    []steps.BasicBlockStep
	Manual             []ManualMatch

	// CheckpointPath, if non-empty, is written with the committed fixed
	// points whenever Run stops early (cancelled ctx or progress
	// returning false), so a caller can report the partial result via
	// LoadCheckpoint instead of re-running the whole pipeline.
	CheckpointPath string
}

// NewPipeline returns a Pipeline configured with the default step
// catalogues; callers may replace FunctionSteps/BasicBlockSteps
// before calling Run to use a custom ordering.
func NewPipeline(primary, secondary *callgraph.Graph) *Pipeline {
	return &Pipeline{
		Primary:         primary,
		Secondary:       secondary,
		FunctionSteps:   steps.DefaultFunctionSteps(),
		BasicBlockSteps: steps.DefaultBasicBlockSteps(),
	}
}

// Run executes the matching pipeline: manual fixed points, then the
// ordered function-step loop with an immediate basic-block sub-pipeline
// per commit, then call-reference propagation to a fixed point.
//
// progress, if non-nil, is invoked between steps and between propagation
// rounds; if it returns false the pipeline stops and returns the partial
// set. ctx cancellation is honored at the same points.
func (p *Pipeline) Run(ctx context.Context, progress func() bool) (*Set, error) {
	set := NewSet()

	for _, m := range p.Manual {
		fp, err := p.commitFunction(m.PrimaryVertex, m.SecondaryVertex, steps.ManualFunctionStepID, 1.0)
		if err != nil {
			return set, err
		}
		if err := set.Commit(fp); err != nil {
			return set, err
		}
	}

	unmatchedP := unmatchedVertices(p.Primary, set, false)
	unmatchedS := unmatchedVertices(p.Secondary, set, true)

	for _, step := range p.FunctionSteps {
		if stopped(ctx, progress) {
			return set, p.checkpoint(set)
		}
		commits, rmP, rmS := p.runFunctionStep(step, unmatchedP, unmatchedS, set)
		for _, fp := range commits {
			if err := set.Commit(fp); err != nil {
				return set, err
			}
		}
		unmatchedP = removeAll(unmatchedP, rmP)
		unmatchedS = removeAll(unmatchedS, rmS)
	}

	for {
		if stopped(ctx, progress) {
			return set, p.checkpoint(set)
		}
		newCommits := p.propagateOnce(set, &unmatchedP, &unmatchedS)
		if newCommits == 0 {
			break
		}
	}

	return set, nil
}

// checkpoint writes the committed fixed points of set to
// p.CheckpointPath, if one was configured; a no-op otherwise.
func (p *Pipeline) checkpoint(set *Set) error {
	if p.CheckpointPath == "" {
		return nil
	}
	return SaveCheckpoint(p.CheckpointPath, NewCheckpoint(set))
}

func stopped(ctx context.Context, progress func() bool) bool {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return true
		default:
		}
	}
	if progress != nil && !progress() {
		return true
	}
	return false
}

func unmatchedVertices(g *callgraph.Graph, set *Set, secondary bool) []uint32 {
	var out []uint32
	for i := range g.Vertices {
		v := uint32(i)
		var matched bool
		if secondary {
			_, matched = set.SecondaryMatched(v)
		} else {
			_, matched = set.PrimaryMatched(v)
		}
		if !matched {
			out = append(out, v)
		}
	}
	return out
}

// runFunctionStep buckets and commits exactly as DefaultFunctionSteps
// documents, returning the fresh commits plus the vertex ids to remove
// from the unmatched pools.
//
// The "function: address sequence" step's PriorMatchedAddress context is
// intentionally left unset here: without a well-defined "current" side
// being matched in declaration order, there is no single nearest-matched
// anchor to offer it, so that step never reports ok=true in this
// implementation (see DESIGN.md).
func (p *Pipeline) runFunctionStep(step steps.FunctionStep, unmatchedP, unmatchedS []uint32, set *Set) ([]*FixedPoint, map[uint32]bool, map[uint32]bool) {
	sig := func(side int, v uint32) (string, bool) {
		g := p.Primary
		if side == 1 {
			g = p.Secondary
		}
		flow, _ := g.AttachedFlowGraph(g.Vertices[v].Address)
		ctx := steps.FunctionContext{Call: g, Flow: flow, VertexIndex: v}
		return step.Signature(ctx)
	}
	tb := tieBreak{
		address: func(side int, v uint32) uint64 {
			g := p.Primary
			if side == 1 {
				g = p.Secondary
			}
			return uint64(g.Vertices[v].Address)
		},
		overlap: func(pv, sv uint32) int {
			return p.callOverlap(pv, sv, set)
		},
	}
	candidates := bucketCommitBest(unmatchedP, unmatchedS, sig, tb)

	var commits []*FixedPoint
	rmP, rmS := map[uint32]bool{}, map[uint32]bool{}
	for _, c := range candidates {
		if rmP[c.Primary] || rmS[c.Secondary] {
			continue
		}
		fp, err := p.commitFunction(c.Primary, c.Secondary, step.ID, step.Confidence)
		if err != nil {
			continue
		}
		commits = append(commits, fp)
		rmP[c.Primary] = true
		rmS[c.Secondary] = true
	}
	return commits, rmP, rmS
}

// callOverlap counts how many of pv's callees are already matched to
// sv's callees, the propagation tie-break used to pick among ambiguous
// candidates.
func (p *Pipeline) callOverlap(pv, sv uint32, set *Set) int {
	calleeP := map[uint32]bool{}
	for _, ei := range p.Primary.OutEdges(pv) {
		calleeP[p.Primary.Edges[ei].Target] = true
	}
	count := 0
	for _, ei := range p.Secondary.OutEdges(sv) {
		target := p.Secondary.Edges[ei].Target
		if fp, ok := set.SecondaryMatched(target); ok && calleeP[fp.PrimaryVertex] {
			count++
		}
	}
	return count
}

// commitFunction builds a FixedPoint for (pv, sv), runs the basic-block
// sub-pipeline over their attached flow graphs, and computes similarity.
func (p *Pipeline) commitFunction(pv, sv uint32, stepID string, confidence float64) (*FixedPoint, error) {
	pVertex := p.Primary.Vertices[pv]
	sVertex := p.Secondary.Vertices[sv]
	fp := &FixedPoint{
		PrimaryVertex:     pv,
		SecondaryVertex:   sv,
		PrimaryAddress:    pVertex.Address,
		SecondaryAddress:  sVertex.Address,
		StepID:            stepID,
		Confidence:        confidence,
	}
	primaryFlow, _ := p.Primary.AttachedFlowGraph(pVertex.Address)
	secondaryFlow, _ := p.Secondary.AttachedFlowGraph(sVertex.Address)
	fp.BasicBlocks = runBasicBlockPipeline(primaryFlow, secondaryFlow, p.BasicBlockSteps)
	fp.Similarity = similarity(primaryFlow, secondaryFlow, fp.BasicBlocks)
	return fp, nil
}

// similarity is a bounded-in-[0,1] function of matched/total basic-block
// and instruction counts, monotone in matched share.
func similarity(primary, secondary *flowgraph.Graph, blocks []BasicBlockFixedPoint) float64 {
	if primary == nil || secondary == nil {
		return 0
	}
	totalBlocks := primary.VertexCount() + secondary.VertexCount()
	if totalBlocks == 0 {
		return 1
	}
	var matchedInstr, totalInstr int
	for _, b := range blocks {
		matchedInstr += len(b.InstructionPairs)
		totalInstr += b.PrimaryInstructionCount + b.SecondaryInstructionCount
	}
	blockShare := float64(2*len(blocks)) / float64(totalBlocks)
	var instrShare float64
	if totalInstr > 0 {
		instrShare = float64(2*matchedInstr) / float64(totalInstr)
	}
	s := 0.5*blockShare + 0.5*instrShare
	if s > 1 {
		s = 1
	}
	if s < 0 {
		s = 0
	}
	return s
}

// propagateOnce re-runs function matching restricted to call-adjacent
// pairs of already-matched functions, committing any unambiguous
// results, and returns how many new fixed points it committed.
func (p *Pipeline) propagateOnce(set *Set, unmatchedP, unmatchedS *[]uint32) int {
	pCandidates := map[uint32]bool{}
	sCandidates := map[uint32]bool{}
	for _, fp := range set.FixedPoints() {
		for _, ei := range p.Primary.OutEdges(fp.PrimaryVertex) {
			t := p.Primary.Edges[ei].Target
			if _, matched := set.PrimaryMatched(t); !matched {
				pCandidates[t] = true
			}
		}
		for _, ei := range p.Secondary.OutEdges(fp.SecondaryVertex) {
			t := p.Secondary.Edges[ei].Target
			if _, matched := set.SecondaryMatched(t); !matched {
				sCandidates[t] = true
			}
		}
	}
	if len(pCandidates) == 0 || len(sCandidates) == 0 {
		return 0
	}
	restrictedP := filterPresent(*unmatchedP, pCandidates)
	restrictedS := filterPresent(*unmatchedS, sCandidates)
	if len(restrictedP) == 0 || len(restrictedS) == 0 {
		return 0
	}

	committed := 0
	rmAllP, rmAllS := map[uint32]bool{}, map[uint32]bool{}
	for _, step := range p.FunctionSteps {
		commits, rmP, rmS := p.runFunctionStep(step, restrictedP, restrictedS, set)
		for _, fp := range commits {
			fp.StepID = steps.CallReferenceFunctionStepID
			if err := set.Commit(fp); err != nil {
				continue
			}
			committed++
		}
		for k := range rmP {
			rmAllP[k] = true
		}
		for k := range rmS {
			rmAllS[k] = true
		}
		restrictedP = removeAll(restrictedP, rmP)
		restrictedS = removeAll(restrictedS, rmS)
		if len(restrictedP) == 0 || len(restrictedS) == 0 {
			break
		}
	}
	*unmatchedP = removeAll(*unmatchedP, rmAllP)
	*unmatchedS = removeAll(*unmatchedS, rmAllS)
	return committed
}

func filterPresent(ids []uint32, set map[uint32]bool) []uint32 {
	var out []uint32
	for _, id := range ids {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}
