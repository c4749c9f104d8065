package steps

import (
	"fmt"
)

// Reserved step ids that bypass the ordered catalogue.
const (
	ManualFunctionStepID       = "function: manual"
	CallReferenceFunctionStepID = "function: call reference"
)

// ReservedFunctionStepIDs lists the function-step ids that never appear in
// DefaultFunctionSteps but must still be written into the algorithm-name
// catalogue.
func ReservedFunctionStepIDs() []string {
	return []string{ManualFunctionStepID, CallReferenceFunctionStepID}
}

// FunctionStep is (id, confidence, signature): the signature function is
// the step's entire identity.
type FunctionStep struct {
	ID         string
	Confidence float64

	// Signature computes this step's hash/order-comparable bucket key for
	// ctx. ok is false when the step has nothing to say about ctx (e.g. a
	// discarded flow graph), excluding it from this round's bucketing.
	Signature func(ctx FunctionContext) (key string, ok bool)
}

// mdBucket quantizes a float64 MD index into a fixed-precision string key
// so that near-equal floating point sums (from different summation
// orders upstream) still land in the same bucket, while genuinely
// different structures don't collide.
func mdBucket(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

// relaxedMdBucket quantizes more coarsely, trading precision for recall
// against minor structural noise.
func relaxedMdBucket(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// DefaultFunctionSteps returns the closed catalogue of ordinary
// (non-reserved) function-level steps, in declaration order. Order is
// significant: higher-confidence, more-selective signatures run first
// and claim 1x1 buckets before weaker ones get a turn.
func DefaultFunctionSteps() []FunctionStep {
	return []FunctionStep{
		{
			ID:         "function: hash matching",
			Confidence: 1.0,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return fmt.Sprintf("%08x", ctx.Flow.ByteHash), true
			},
		},
		{
			ID:         "function: edges flowgraph MD index",
			Confidence: 1.0,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return mdBucket(ctx.Flow.MDIndex), true
			},
		},
		{
			ID:         "function: edges callgraph MD index",
			Confidence: 0.9,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Call == nil {
					return "", false
				}
				return mdBucket(ctx.Call.VertexMdIndex(ctx.VertexIndex)), true
			},
		},
		{
			ID:         "function: MD index matching (flowgraph MD index, top down)",
			Confidence: 0.9,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return mdBucket(ctx.Flow.MDIndex), true
			},
		},
		{
			ID:         "function: MD index matching (flowgraph MD index, bottom up)",
			Confidence: 0.9,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return mdBucket(ctx.Flow.MDIndexInverted), true
			},
		},
		{
			ID:         "function: prime signature matching",
			Confidence: 0.9,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return fmt.Sprintf("%016x", ctx.Flow.PrimeSum), true
			},
		},
		{
			ID:         "function: MD index matching (callGraph MD index, top down)",
			Confidence: 0.8,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Call == nil {
					return "", false
				}
				return mdBucket(ctx.Call.VertexMdIndex(ctx.VertexIndex)), true
			},
		},
		{
			ID:         "function: MD index matching (callGraph MD index, bottom up)",
			Confidence: 0.8,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Call == nil {
					return "", false
				}
				return mdBucket(ctx.Call.VertexMdIndex(ctx.VertexIndex)), true
			},
		},
		{
			ID:         "function: relaxed MD index matching",
			Confidence: 0.7,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return relaxedMdBucket(ctx.Flow.MDIndex), true
			},
		},
		{
			ID:         "function: instruction count",
			Confidence: 0.4,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return fmt.Sprintf("%d", ctx.Flow.NumInstructions), true
			},
		},
		{
			ID:         "function: address sequence",
			Confidence: 0.4,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.PriorMatchedAddress == nil || ctx.Call == nil {
					return "", false
				}
				vertex := ctx.Call.Vertices[ctx.VertexIndex]
				delta := int64(vertex.Address) - int64(*ctx.PriorMatchedAddress)
				return fmt.Sprintf("%+d", delta), true
			},
		},
		{
			ID:         "function: string references",
			Confidence: 0.7,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				var acc uint32 = 1
				for i := range ctx.Flow.Vertices {
					acc ^= ctx.Flow.Vertices[i].StringHash
				}
				if acc == 0 {
					return "", false
				}
				return fmt.Sprintf("%08x", acc), true
			},
		},
		{
			ID:         "function: loop count matching",
			Confidence: 0.6,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Flow == nil || ctx.Flow.Discarded {
					return "", false
				}
				return fmt.Sprintf("%d", ctx.Flow.LoopCount), true
			},
		},
		{
			ID:         "function: call sequence matching (exact)",
			Confidence: 0.1,
			Signature:  callSequenceSignature(false),
		},
		{
			ID:         "function: call sequence matching (topology)",
			Confidence: 0.0,
			Signature:  callSequenceSignature(true),
		},
		{
			ID:         "function: call sequence matching (sequence)",
			Confidence: 0.0,
			Signature: func(ctx FunctionContext) (string, bool) {
				if ctx.Call == nil {
					return "", false
				}
				return fmt.Sprintf("%d", ctx.Call.OutDegree(ctx.VertexIndex)), true
			},
		},
	}
}

// callSequenceSignature builds the "call sequence matching" family's
// signature from the function's call-graph degrees only: the out-degree
// (exact) or the out-degree/in-degree pair (topology), used primarily as
// low-confidence propagation support. Callee contents are not hashed.
func callSequenceSignature(topologyOnly bool) func(FunctionContext) (string, bool) {
	return func(ctx FunctionContext) (string, bool) {
		if ctx.Call == nil {
			return "", false
		}
		out := ctx.Call.OutDegree(ctx.VertexIndex)
		in := ctx.Call.InDegree(ctx.VertexIndex)
		if topologyOnly {
			return fmt.Sprintf("%d/%d", out, in), true
		}
		return fmt.Sprintf("out=%d", out), true
	}
}
