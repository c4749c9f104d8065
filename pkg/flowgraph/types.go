// Package flowgraph implements the per-function control-flow graph (C3):
// basic-block vertices, typed edges, dominator-based loop marking,
// BFS topology, and the MD-index structural signature.
package flowgraph

import (
	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/inst"
)

// EdgeFlag classifies a flow-graph edge. Exactly one of True/False/
// Unconditional/Switch is set; Dominated may be OR-ed in separately once
// loop marking has run.
type EdgeFlag uint8

const (
	EdgeTrue EdgeFlag = 1 << iota
	EdgeFalse
	EdgeUnconditional
	EdgeSwitch
	EdgeDominated
)

// VertexFlag is a bit field on a basic-block vertex.
type VertexFlag uint8

// LoopEntry marks a vertex that is the target of at least one
// dominator-marked back-edge.
const LoopEntry VertexFlag = 1 << 0

// Edge is one typed control-flow edge between two vertex indices.
type Edge struct {
	Source, Target uint32
	Flags          EdgeFlag
	MDTopDown      float64
	MDBottomUp     float64
}

// IsDominated reports whether the edge's target dominates its source,
// i.e. this is a loop back-edge.
func (e Edge) IsDominated() bool { return e.Flags&EdgeDominated != 0 }

// Vertex is one basic block's metadata.
type Vertex struct {
	InstrStart uint32 // index into the owning Graph's Instructions
	InstrEnd   uint32 // half-open range end

	Prime           uint64 // sum of instruction primes in the block
	BasicBlockHash  uint32 // SDBM hash of the block's raw bytes
	Flags           VertexFlag
	CallTargetStart uint32 // index into Graph.CallTargets; addr.MaxIndex if none
	CallTargetEnd   uint32
	StringHash      uint32

	BFSTopDown    int
	BFSBottomUp   int

	// FixedPoint is a weak back-reference to whatever the match package
	// committed this vertex into. It is opaque here (flowgraph must not
	// import match) and is cleared by the owner when the match set is
	// cleared.
	FixedPoint any
}

// IsLoopEntry reports whether this vertex is the target of a back-edge.
func (v *Vertex) IsLoopEntry() bool { return v.Flags&LoopEntry != 0 }

// HasCallTargets reports whether the vertex issues any calls.
func (v *Vertex) HasCallTargets() bool { return v.CallTargetStart != addr.MaxIndex }

// NameResolver is the minimal view a Graph needs of its owning call graph,
// used only for diagnostics (function/display names). Defined here rather
// than importing the callgraph package, so that callgraph can depend on
// flowgraph without creating an import cycle.
type NameResolver interface {
	NameAt(address addr.Address) (string, bool)
}

// Graph is one function's control-flow graph. It owns its instruction
// array and call-target array exclusively.
type Graph struct {
	EntryAddress addr.Address
	EntryVertex  uint32

	Vertices []*Vertex
	Edges    []Edge

	Instructions []inst.Instruction
	CallTargets  []addr.Address

	PrimeSum        uint64
	ByteHash        uint32
	MDIndex         float64
	MDIndexInverted float64
	LoopCount       int

	// NumBasicBlocks/NumEdges/NumInstructions are the raw counts seen
	// during construction, retained even if the graph was discarded by
	// the size gate so that aggregate statistics stay consistent.
	NumBasicBlocks  int
	NumEdges        int
	NumInstructions int

	// Discarded is set when the graph exceeded the size gate; in
	// that case Vertices/Edges/Instructions/CallTargets are empty.
	Discarded bool

	resolver NameResolver

	outEdges   [][]uint32 // adjacency: vertex -> indices into Edges (outgoing)
	inEdges    [][]uint32 // adjacency: vertex -> indices into Edges (incoming)
	callLevels []CallLevel
}

// SetNameResolver attaches the owning call graph's name resolver. Never
// serialized, never compared; purely a diagnostics convenience.
func (g *Graph) SetNameResolver(r NameResolver) { g.resolver = r }

// Name returns the display name of this function, if the owning call
// graph knows one.
func (g *Graph) Name() (string, bool) {
	if g.resolver == nil {
		return "", false
	}
	return g.resolver.NameAt(g.EntryAddress)
}

// VertexCount returns the number of live vertices (0 if discarded).
func (g *Graph) VertexCount() int { return len(g.Vertices) }

// EdgeCount returns the number of live edges (0 if discarded).
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// InstructionRange returns the instructions owned by vertex v.
func (g *Graph) InstructionRange(v uint32) []inst.Instruction {
	vertex := g.Vertices[v]
	return g.Instructions[vertex.InstrStart:vertex.InstrEnd]
}

// CallTargetsOf returns the call targets issued by vertex v.
func (g *Graph) CallTargetsOf(v uint32) []addr.Address {
	vertex := g.Vertices[v]
	if !vertex.HasCallTargets() {
		return nil
	}
	return g.CallTargets[vertex.CallTargetStart:vertex.CallTargetEnd]
}

// OutEdges returns the indices into Edges of v's outgoing edges.
func (g *Graph) OutEdges(v uint32) []uint32 { return g.outEdges[v] }

// InEdges returns the indices into Edges of v's incoming edges.
func (g *Graph) InEdges(v uint32) []uint32 { return g.inEdges[v] }

// OutDegree and InDegree feed the MD-index weight function.
func (g *Graph) OutDegree(v uint32) int { return len(g.outEdges[v]) }
func (g *Graph) InDegree(v uint32) int  { return len(g.inEdges[v]) }
