// Package steps implements the closed catalogue of function-level and
// basic-block-level matching steps (C7): each step is a small tagged
// (id, confidence, signature) value, not a class hierarchy — the
// signature function is a step's entire defining behavior.
package steps

import (
	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/callgraph"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
)

// FunctionContext is everything a function-level signature function may
// consult: the owning call graph, the function's own flow graph (nil if
// none was attached or it was discarded), and its call-graph vertex
// index.
type FunctionContext struct {
	Call        *callgraph.Graph
	Flow        *flowgraph.Graph
	VertexIndex uint32

	// PriorMatchedAddress is the address of the nearest already-matched
	// function on this context's side, read only by the "function: address
	// sequence" step. match.Pipeline never sets it, so that step reports
	// ok=false there.
	PriorMatchedAddress *addr.Address
}

// BlockContext is everything a basic-block-level signature function may
// consult: the owning flow graph and the vertex index within it.
type BlockContext struct {
	Flow        *flowgraph.Graph
	VertexIndex uint32
}
