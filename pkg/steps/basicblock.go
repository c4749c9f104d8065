package steps

import (
	"fmt"

	"github.com/oisee/bindiffcore/pkg/flowgraph"
)

// Reserved basic-block step ids.
const (
	PropagationBasicBlockStepID = "basicBlock: propagation"
	ManualBasicBlockStepID      = "basicBlock: manual"
)

// ReservedBasicBlockStepIDs lists the basic-block-step ids that never
// appear in DefaultBasicBlockSteps but must still be written into the
// algorithm-name catalogue.
func ReservedBasicBlockStepIDs() []string {
	return []string{PropagationBasicBlockStepID, ManualBasicBlockStepID}
}

// BasicBlockStep is (id, confidence, signature) for one vertex.
type BasicBlockStep struct {
	ID         string
	Confidence float64
	Signature  func(ctx BlockContext) (key string, ok bool)
}

// DefaultBasicBlockSteps returns the closed catalogue of ordinary
// (non-reserved) basic-block-level steps, in declaration order.
func DefaultBasicBlockSteps() []BasicBlockStep {
	return []BasicBlockStep{
		{
			ID:         "basicBlock: edges prime product",
			Confidence: 1.0,
			Signature: func(ctx BlockContext) (string, bool) {
				var product uint64 = 1
				for _, ei := range ctx.Flow.OutEdges(ctx.VertexIndex) {
					e := ctx.Flow.Edges[ei]
					sp := ctx.Flow.Vertices[e.Source].Prime
					tp := ctx.Flow.Vertices[e.Target].Prime
					product *= (sp*31 + tp + 1)
				}
				if product == 1 {
					return "", false
				}
				return fmt.Sprintf("%016x", product), true
			},
		},
		{
			ID:         "basicBlock: hash matching (4 instructions minimum)",
			Confidence: 1.0,
			Signature:  minInstructionCount(4, func(v *flowgraph.Vertex) string { return fmt.Sprintf("%08x", v.BasicBlockHash) }),
		},
		{
			ID:         "basicBlock: prime matching (4 instructions minimum)",
			Confidence: 0.9,
			Signature:  minInstructionCount(4, func(v *flowgraph.Vertex) string { return fmt.Sprintf("%016x", v.Prime) }),
		},
		{
			ID:         "basicBlock: call reference matching",
			Confidence: 0.8,
			Signature: func(ctx BlockContext) (string, bool) {
				targets := ctx.Flow.CallTargetsOf(ctx.VertexIndex)
				if len(targets) == 0 {
					return "", false
				}
				var acc uint64
				for _, t := range targets {
					acc ^= uint64(t)
				}
				return fmt.Sprintf("%016x", acc), true
			},
		},
		{
			ID:         "basicBlock: string references matching",
			Confidence: 0.8,
			Signature: func(ctx BlockContext) (string, bool) {
				v := ctx.Flow.Vertices[ctx.VertexIndex]
				if v.StringHash == 0 {
					return "", false
				}
				return fmt.Sprintf("%08x", v.StringHash), true
			},
		},
		{
			ID:         "basicBlock: edges MD index (top down)",
			Confidence: 0.7,
			Signature:  mdEdgeSignature(false),
		},
		{
			ID:         "basicBlock: edges MD index (bottom up)",
			Confidence: 0.7,
			Signature:  mdEdgeSignature(true),
		},
		{
			ID:         "basicBlock: MD index matching (top down)",
			Confidence: 0.7,
			Signature: func(ctx BlockContext) (string, bool) {
				return mdBucket(ctx.Flow.VertexMDIndex(ctx.VertexIndex, false)), true
			},
		},
		{
			ID:         "basicBlock: MD index matching (bottom up)",
			Confidence: 0.7,
			Signature: func(ctx BlockContext) (string, bool) {
				return mdBucket(ctx.Flow.VertexMDIndex(ctx.VertexIndex, true)), true
			},
		},
		{
			ID:         "basicBlock: relaxed MD index matching",
			Confidence: 0.6,
			Signature: func(ctx BlockContext) (string, bool) {
				return relaxedMdBucket(ctx.Flow.VertexMDIndex(ctx.VertexIndex, false)), true
			},
		},
		{
			ID:         "basicBlock: prime matching (0 instructions minimum)",
			Confidence: 0.5,
			Signature:  minInstructionCount(0, func(v *flowgraph.Vertex) string { return fmt.Sprintf("%016x", v.Prime) }),
		},
		{
			ID:         "basicBlock: edges Lengauer Tarjan dominated",
			Confidence: 0.4,
			Signature: func(ctx BlockContext) (string, bool) {
				count := 0
				for _, ei := range ctx.Flow.OutEdges(ctx.VertexIndex) {
					if ctx.Flow.Edges[ei].IsDominated() {
						count++
					}
				}
				for _, ei := range ctx.Flow.InEdges(ctx.VertexIndex) {
					if ctx.Flow.Edges[ei].IsDominated() {
						count++
					}
				}
				if count == 0 {
					return "", false
				}
				return fmt.Sprintf("%d", count), true
			},
		},
		{
			ID:         "basicBlock: loop entry matching",
			Confidence: 0.4,
			Signature: func(ctx BlockContext) (string, bool) {
				if !ctx.Flow.Vertices[ctx.VertexIndex].IsLoopEntry() {
					return "", false
				}
				return "loop-entry", true
			},
		},
		{
			ID:         "basicBlock: self loop matching",
			Confidence: 0.3,
			Signature: func(ctx BlockContext) (string, bool) {
				for _, ei := range ctx.Flow.OutEdges(ctx.VertexIndex) {
					if ctx.Flow.Edges[ei].Target == ctx.VertexIndex {
						return "self-loop", true
					}
				}
				return "", false
			},
		},
		{
			ID:         "basicBlock: entry point matching",
			Confidence: 0.2,
			Signature: func(ctx BlockContext) (string, bool) {
				if ctx.VertexIndex != ctx.Flow.EntryVertex {
					return "", false
				}
				return "entry", true
			},
		},
		{
			ID:         "basicBlock: exit point matching",
			Confidence: 0.1,
			Signature: func(ctx BlockContext) (string, bool) {
				if len(ctx.Flow.OutEdges(ctx.VertexIndex)) != 0 {
					return "", false
				}
				return "exit", true
			},
		},
		{
			ID:         "basicBlock: instruction count matching",
			Confidence: 0.0,
			Signature: func(ctx BlockContext) (string, bool) {
				v := ctx.Flow.Vertices[ctx.VertexIndex]
				return fmt.Sprintf("%d", v.InstrEnd-v.InstrStart), true
			},
		},
		{
			ID:         "basicBlock: jump sequence matching",
			Confidence: 0.0,
			Signature: func(ctx BlockContext) (string, bool) {
				var seq string
				for _, ei := range ctx.Flow.OutEdges(ctx.VertexIndex) {
					seq += fmt.Sprintf("%d,", ctx.Flow.Edges[ei].Flags)
				}
				return seq, true
			},
		},
	}
}

func minInstructionCount(min int, key func(*flowgraph.Vertex) string) func(BlockContext) (string, bool) {
	return func(ctx BlockContext) (string, bool) {
		v := ctx.Flow.Vertices[ctx.VertexIndex]
		count := int(v.InstrEnd - v.InstrStart)
		if count < min {
			return "", false
		}
		return key(v), true
	}
}

func mdEdgeSignature(inverted bool) func(BlockContext) (string, bool) {
	return func(ctx BlockContext) (string, bool) {
		var acc float64
		for _, ei := range ctx.Flow.OutEdges(ctx.VertexIndex) {
			e := ctx.Flow.Edges[ei]
			if inverted {
				acc += e.MDBottomUp
			} else {
				acc += e.MDTopDown
			}
		}
		if acc == 0 {
			return "", false
		}
		return mdBucket(acc), true
	}
}
