// Package binexport implements the codec for the binary-export artifact
// (C5): a length-delimited protocol-buffer-like wire format decoded field
// by field via protowire, plus a small fixed-size legacy binary header
// kept for compatibility with older tooling.
package binexport

import "github.com/oisee/bindiffcore/pkg/addr"

// MetaInformation is the artifact's top-level descriptive record.
type MetaInformation struct {
	ExecutableName string
	ExecutableID   string
	Architecture   string
	Timestamp      int64
}

// EdgeType mirrors the artifact's flow_graph edge type enum.
type EdgeType int

const (
	EdgeConditionTrue EdgeType = iota
	EdgeConditionFalse
	EdgeUnconditional
	EdgeSwitch
)

// RawInstruction is one decoded instruction, address already resolved
// from the continuous-run encoding.
type RawInstruction struct {
	Address      addr.Address
	RawBytes     []byte
	MnemonicName string
	OperandIndex []int // indices into Artifact.Operands
	CallTargets  []addr.Address
}

// RawBasicBlock is a half-open range of instruction indices.
type RawBasicBlock struct {
	Begin, End int // indices into Artifact.Instructions
}

// RawEdge is one flow-graph edge in terms of basic-block indices local to
// the owning flow graph's BasicBlockIndex slice.
type RawEdge struct {
	Source, Target int
	Type           EdgeType
	IsBackEdge     bool
}

// RawFlowGraph is one function's decoded flow graph, still in artifact
// index space (not yet translated into pkg/flowgraph.BuildInput).
type RawFlowGraph struct {
	EntryBasicBlockIndex int
	BasicBlockIndex      []int // indices into Artifact.BasicBlocks
	Edges                []RawEdge
}

// CallVertexType mirrors the artifact's call_graph vertex type enum.
type CallVertexType int

const (
	VertexNormal CallVertexType = iota
	VertexLibrary
	VertexThunk
	VertexImported
	VertexInvalid
)

// RawCallVertex is one decoded call-graph vertex.
type RawCallVertex struct {
	Address       addr.Address
	MangledName   string
	DemangledName string
	ModuleName    string
	Type          CallVertexType
}

// RawCallEdge indexes into Artifact.CallVertices.
type RawCallEdge struct {
	Source, Target int
}

// CommentType mirrors the artifact's comment type enum.
type CommentType int

const (
	CommentDefault CommentType = iota
	CommentAnterior
	CommentPosterior
	CommentFunction
	CommentEnum
	CommentLocation
	CommentGlobalReference
	CommentLocalReference
)

// RawComment is one decoded comment, still referencing its owning
// instruction by artifact-level instruction index.
type RawComment struct {
	InstructionIndex int
	OperandIndex     int
	Type             CommentType
	Repeatable       bool
	Text             string
}

// ExpressionType mirrors the operand-tree node kinds used by the
// dump-rendering rules.
type ExpressionType int

const (
	ExprSymbol ExpressionType = iota
	ExprImmediate
	ExprOperator
	ExprRegister
	ExprSize
	ExprDeref
)

// Expression is one node of an operand's expression tree. Children are
// found by scanning Artifact.Expressions for entries whose HasParent is
// true and ParentIndex equals this node's own index, in table order.
type Expression struct {
	Type       ExpressionType
	Symbol     string
	Immediate  int64
	HasParent  bool
	ParentIndex int
}

// Operand is an ordered list of root expression indices forming one
// instruction operand's tree (usually a single root).
type Operand struct {
	ExpressionIndex []int
}

// Artifact is the fully decoded binary-export record.
type Artifact struct {
	Meta         MetaInformation
	StringTable  []string
	Expressions  []Expression
	Operands     []Operand
	Instructions []RawInstruction
	BasicBlocks  []RawBasicBlock
	FlowGraphs   []RawFlowGraph
	CallVertices []RawCallVertex
	CallEdges    []RawCallEdge
	Comments     []RawComment
}
