package callgraph

import (
	"sort"

	"github.com/oisee/bindiffcore/internal/differr"
	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
)

// RawVertex is one decoded call-graph vertex, codec-agnostic.
type RawVertex struct {
	Address       addr.Address
	MangledName   string
	DemangledName string
	ModuleName    string
	Flags         VertexFlag
}

// RawEdge indexes into the RawVertex slice passed to Build.
type RawEdge struct {
	Source, Target int
}

// Build constructs a Graph from decoded vertices/edges, sorting vertices
// into ascending address order and building the adjacency used for
// MD-index computation.
func Build(vertices []RawVertex, edges []RawEdge) (*Graph, error) {
	order := make([]int, len(vertices))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return vertices[order[i]].Address < vertices[order[j]].Address
	})
	oldToNew := make([]int, len(vertices))
	for newIdx, oldIdx := range order {
		oldToNew[oldIdx] = newIdx
	}

	g := New()
	g.Vertices = make([]*Vertex, len(vertices))
	for newIdx, oldIdx := range order {
		rv := vertices[oldIdx]
		g.Vertices[newIdx] = &Vertex{
			Address:       rv.Address,
			Name:          rv.MangledName,
			DemangledName: rv.DemangledName,
			ModuleName:    rv.ModuleName,
			Flags:         rv.Flags,
		}
	}

	g.outEdges = make([][]uint32, len(vertices))
	g.inEdges = make([][]uint32, len(vertices))
	for _, re := range edges {
		if re.Source < 0 || re.Source >= len(vertices) || re.Target < 0 || re.Target >= len(vertices) {
			return nil, differr.New(differr.InvalidArgument, "call graph edge references unknown vertex")
		}
		e := Edge{Source: uint32(oldToNew[re.Source]), Target: uint32(oldToNew[re.Target])}
		idx := uint32(len(g.Edges))
		g.Edges = append(g.Edges, e)
		g.outEdges[e.Source] = append(g.outEdges[e.Source], idx)
		g.inEdges[e.Target] = append(g.inEdges[e.Target], idx)
	}
	return g, nil
}

// AttachFlowGraph registers f as the flow graph for its entry address.
// Returns FailedPrecondition on a nil argument or a double-attach.
func (g *Graph) AttachFlowGraph(f *flowgraph.Graph) error {
	if f == nil {
		return differr.New(differr.FailedPrecondition, "AttachFlowGraph: nil flow graph")
	}
	if _, exists := g.attached[f.EntryAddress]; exists {
		return differr.New(differr.FailedPrecondition, "AttachFlowGraph: already attached at "+f.EntryAddress.String())
	}
	g.attached[f.EntryAddress] = f
	f.SetNameResolver(g)
	return nil
}

// DetachFlowGraph removes f from the registry. Returns FailedPrecondition
// on a nil argument or if f was never attached.
func (g *Graph) DetachFlowGraph(f *flowgraph.Graph) error {
	if f == nil {
		return differr.New(differr.FailedPrecondition, "DetachFlowGraph: nil flow graph")
	}
	if _, exists := g.attached[f.EntryAddress]; !exists {
		return differr.New(differr.FailedPrecondition, "DetachFlowGraph: not attached at "+f.EntryAddress.String())
	}
	delete(g.attached, f.EntryAddress)
	return nil
}

// AttachedFlowGraph returns the flow graph registered at address, if any.
func (g *Graph) AttachedFlowGraph(address addr.Address) (*flowgraph.Graph, bool) {
	f, ok := g.attached[address]
	return f, ok
}

// AttachedCount returns the number of currently attached flow graphs —
// exposed so a collaborator (or a test) can detect a leaked attachment
// that was never detached before the call graph went out of scope.
func (g *Graph) AttachedCount() int { return len(g.attached) }

// AttachedFlowGraphs iterates every attached flow graph in address order.
func (g *Graph) AttachedFlowGraphs(yield func(*flowgraph.Graph) bool) {
	for _, v := range g.Vertices {
		f, ok := g.attached[v.Address]
		if !ok {
			continue
		}
		if !yield(f) {
			return
		}
	}
}
