// Package callgraph implements the inter-function call graph (C4):
// vertices carry function identity/flags, edges are plain call relations,
// and a registry tracks attached per-function flow graphs.
package callgraph

import (
	"path/filepath"
	"strings"

	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
)

// VertexFlag classifies a function vertex.
type VertexFlag uint16

const (
	Library VertexFlag = 1 << iota
	Thunk
	Imported
	Invalid
	HasName
	HasDemangledName
)

// Vertex is one function's call-graph metadata.
type Vertex struct {
	Address        addr.Address
	Name           string
	DemangledName  string
	Flags          VertexFlag
	ModuleName     string
}

// DisplayName returns the demangled name if present, else the mangled
// name, else a synthesized "sub_<address>" label.
func (v *Vertex) DisplayName() string {
	if v.Flags&HasDemangledName != 0 && v.DemangledName != "" {
		return v.DemangledName
	}
	if v.Flags&HasName != 0 && v.Name != "" {
		return v.Name
	}
	return "sub_" + v.Address.String()[2:]
}

// Edge is a plain call relation between two vertex indices; it carries
// no additional weight.
type Edge struct {
	Source, Target uint32
}

// Graph is the inter-function call graph for one binary.
type Graph struct {
	Vertices []*Vertex
	Edges    []Edge

	outEdges [][]uint32
	inEdges  [][]uint32

	// attached is the non-owning registry of flow graphs attached to
	// this call graph, keyed by entry address.
	attached map[addr.Address]*flowgraph.Graph

	// comments is the shared comment map keyed by (address, operandNum),
	// populated from the artifact's comments by binexport's BuildAll.
	comments map[CommentKey]string
}

// CommentKey identifies one comment slot.
type CommentKey struct {
	Address    addr.Address
	OperandNum int
}

// New returns an empty call graph.
func New() *Graph {
	return &Graph{
		attached: make(map[addr.Address]*flowgraph.Graph),
		comments: make(map[CommentKey]string),
	}
}

// Comments returns the shared comment map (read-write; binexport's
// BuildAll fills it from the decoded artifact).
func (g *Graph) Comments() map[CommentKey]string { return g.comments }

// NameAt implements flowgraph.NameResolver.
func (g *Graph) NameAt(address addr.Address) (string, bool) {
	v, ok := g.VertexAt(address)
	if !ok {
		return "", false
	}
	return v.DisplayName(), true
}

// VertexAt finds the vertex at address via binary search.
func (g *Graph) VertexAt(address addr.Address) (*Vertex, bool) {
	idx, ok := g.VertexIndexAt(address)
	if !ok {
		return nil, false
	}
	return g.Vertices[idx], true
}

// VertexIndexAt is VertexAt but returns the index, or (addr.MaxIndex,
// false) when no vertex has exactly that address.
func (g *Graph) VertexIndexAt(address addr.Address) (uint32, bool) {
	n := len(g.Vertices)
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if g.Vertices[mid].Address < address {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < n && g.Vertices[lo].Address == address {
		return uint32(lo), true
	}
	return addr.MaxIndex, false
}

// OutEdges/InEdges/OutDegree/InDegree mirror flowgraph.Graph's adjacency
// accessors, feeding the call-graph MD index.
func (g *Graph) OutEdges(v uint32) []uint32 { return g.outEdges[v] }
func (g *Graph) InEdges(v uint32) []uint32  { return g.inEdges[v] }
func (g *Graph) OutDegree(v uint32) int     { return len(g.outEdges[v]) }
func (g *Graph) InDegree(v uint32) int      { return len(g.inEdges[v]) }

// ShortName extracts the basename-without-extension display form used
// for call-graph file identification: strip both Windows and
// POSIX path separators and a trailing ".exe".
func ShortName(path string) string {
	// filepath.Base only understands the build platform's separator;
	// normalize both kinds first so this is correct regardless of host OS.
	normalized := strings.ReplaceAll(path, "\\", "/")
	base := filepath.Base(normalized)
	return strings.TrimSuffix(base, ".exe")
}
