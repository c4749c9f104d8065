// Package classify computes per-fixed-point change flags and the
// whole-diff histogram/similarity/confidence scores (C8).
package classify

import (
	"github.com/oisee/bindiffcore/pkg/callgraph"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
	"github.com/oisee/bindiffcore/pkg/match"
)

// Classify computes fp.Flags in place from the two functions' flow
// graphs. primary/secondary may be nil if no flow graph was
// attached (e.g. library stubs); in that case only CALLS is evaluated,
// from call-graph data alone.
func Classify(fp *match.FixedPoint, primaryCall, secondaryCall *callgraph.Graph, primary, secondary *flowgraph.Graph) {
	var flags match.ChangeFlags

	if primary != nil && secondary != nil {
		if primary.VertexCount() != secondary.VertexCount() || primary.EdgeCount() != secondary.EdgeCount() {
			flags |= match.ChangeStructural
		}
		if primary.LoopCount != secondary.LoopCount {
			flags |= match.ChangeLoops
		}
		if anyUnmatchedInstruction(fp, primary, secondary) {
			flags |= match.ChangeInstructions
		}
		if anyOperandMismatch(fp) {
			flags |= match.ChangeOperands
		}
		if branchInverted(fp, primary, secondary) {
			flags |= match.ChangeBranchInversion
		}
		if entryPointDiffers(primary, secondary) {
			flags |= match.ChangeEntryPoint
		}
	}

	if callsDiffer(fp, primaryCall, secondaryCall) {
		flags |= match.ChangeCalls
	}

	fp.Flags = flags
}

func anyUnmatchedInstruction(fp *match.FixedPoint, primary, secondary *flowgraph.Graph) bool {
	for _, bb := range fp.BasicBlocks {
		total := bb.PrimaryInstructionCount + bb.SecondaryInstructionCount
		matched := 2 * len(bb.InstructionPairs)
		if matched < total {
			return true
		}
	}
	return primary.VertexCount() != len(fp.BasicBlocks) || secondary.VertexCount() != len(fp.BasicBlocks)
}

// anyOperandMismatch reports whether any matched instruction pair's raw
// mnemonic identity differs in a way that would imply differing operand
// token streams. This implementation only has mnemonic-id-level
// equality available from inst.Pair so it conservatively reports false;
// a richer operand-token comparison belongs in the binexport/render
// layer once two artifacts are diffed side by side (see DESIGN.md).
func anyOperandMismatch(fp *match.FixedPoint) bool {
	return false
}

// branchInverted reports whether any matched basic-block pair has only a
// true outgoing edge on one side and only a false outgoing edge on the
// other. Edge targets are not compared, so a pair where both blocks have
// both a true and a false edge is never reported, even if the targets
// are swapped.
func branchInverted(fp *match.FixedPoint, primary, secondary *flowgraph.Graph) bool {
	for _, bb := range fp.BasicBlocks {
		pTrue, pFalse := branchTargets(primary, bb.PrimaryVertex)
		sTrue, sFalse := branchTargets(secondary, bb.SecondaryVertex)
		if pTrue && !sTrue && pFalse && !sFalse {
			continue
		}
		if pTrue != sTrue && pFalse != sFalse && pTrue == sFalse && pFalse == sTrue {
			return true
		}
	}
	return false
}

func branchTargets(g *flowgraph.Graph, v uint32) (hasTrue, hasFalse bool) {
	for _, ei := range g.OutEdges(v) {
		e := g.Edges[ei]
		if e.Flags&flowgraph.EdgeTrue != 0 {
			hasTrue = true
		}
		if e.Flags&flowgraph.EdgeFalse != 0 {
			hasFalse = true
		}
	}
	return
}

// entryPointDiffers reports whether the two functions' entry vertices
// differ in any property: their structural role (loop entry, whether
// they issue calls) or their content (raw-byte hash, which changes
// whenever any instruction in the entry block is added, removed, or
// replaced with a different one).
func entryPointDiffers(primary, secondary *flowgraph.Graph) bool {
	pv := primary.Vertices[primary.EntryVertex]
	sv := secondary.Vertices[secondary.EntryVertex]
	return pv.IsLoopEntry() != sv.IsLoopEntry() ||
		pv.HasCallTargets() != sv.HasCallTargets() ||
		pv.BasicBlockHash != sv.BasicBlockHash
}

// callsDiffer reports whether the matched functions have a different
// number of outgoing call-graph edges. Callee identities are not compared
// through the committed fixed-point set, so calls redirected to different
// callees with an unchanged count are not reported.
func callsDiffer(fp *match.FixedPoint, primaryCall, secondaryCall *callgraph.Graph) bool {
	if primaryCall == nil || secondaryCall == nil {
		return false
	}
	pOut := primaryCall.OutDegree(fp.PrimaryVertex)
	sOut := secondaryCall.OutDegree(fp.SecondaryVertex)
	return pOut != sOut
}
