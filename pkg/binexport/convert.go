package binexport

import (
	"github.com/oisee/bindiffcore/internal/differr"
	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/callgraph"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
	"github.com/oisee/bindiffcore/pkg/inst"
)

// edgeTypeToFlag maps the artifact's edge type enum onto the flow graph's
// bit flags.
func edgeTypeToFlag(t EdgeType) flowgraph.EdgeFlag {
	switch t {
	case EdgeConditionTrue:
		return flowgraph.EdgeTrue
	case EdgeConditionFalse:
		return flowgraph.EdgeFalse
	case EdgeSwitch:
		return flowgraph.EdgeSwitch
	default:
		return flowgraph.EdgeUnconditional
	}
}

// FlowGraphInput converts the idx-th decoded flow graph of art into a
// flowgraph.BuildInput, ready for flowgraph.Build.
func (art *Artifact) FlowGraphInput(idx int) (flowgraph.BuildInput, error) {
	if idx < 0 || idx >= len(art.FlowGraphs) {
		return flowgraph.BuildInput{}, differr.New(differr.InvalidArgument, "binexport: flow graph index out of range")
	}
	fg := art.FlowGraphs[idx]

	// blockPos maps an artifact-level basic-block index to its position
	// within this flow graph's own BasicBlockIndex slice.
	blockPos := make(map[int]int, len(fg.BasicBlockIndex))
	for pos, bbIdx := range fg.BasicBlockIndex {
		blockPos[bbIdx] = pos
	}

	in := flowgraph.BuildInput{}
	entryPos, ok := blockPos[fg.EntryBasicBlockIndex]
	if !ok {
		return flowgraph.BuildInput{}, differr.New(differr.InvalidArgument, "binexport: entry basic block not present in flow graph")
	}
	in.EntryBlock = entryPos

	for _, bbIdx := range fg.BasicBlockIndex {
		if bbIdx < 0 || bbIdx >= len(art.BasicBlocks) {
			return flowgraph.BuildInput{}, differr.New(differr.InvalidArgument, "binexport: basic block index out of range")
		}
		bb := art.BasicBlocks[bbIdx]
		block := flowgraph.RawBlock{}
		for i := bb.Begin; i < bb.End; i++ {
			if i < 0 || i >= len(art.Instructions) {
				return flowgraph.BuildInput{}, differr.New(differr.InvalidArgument, "binexport: instruction index out of range")
			}
			ins := art.Instructions[i]
			block.Instructions = append(block.Instructions, flowgraph.RawInstruction{
				Address:     ins.Address,
				RawBytes:    ins.RawBytes,
				Mnemonic:    ins.MnemonicName,
				CallTargets: ins.CallTargets,
			})
		}
		in.Blocks = append(in.Blocks, block)
	}

	for _, e := range fg.Edges {
		sourcePos, ok := blockPos[e.Source]
		if !ok {
			continue
		}
		targetPos, ok := blockPos[e.Target]
		if !ok {
			continue
		}
		in.Edges = append(in.Edges, flowgraph.RawEdge{
			Source: sourcePos,
			Target: targetPos,
			Type:   edgeTypeToFlag(e.Type),
		})
	}
	return in, nil
}

// BuildFlowGraph is a convenience wrapper combining FlowGraphInput and
// flowgraph.Build for the idx-th decoded flow graph.
func (art *Artifact) BuildFlowGraph(cache *inst.Cache, idx int) (*flowgraph.Graph, error) {
	in, err := art.FlowGraphInput(idx)
	if err != nil {
		return nil, err
	}
	return flowgraph.Build(cache, in)
}

func vertexTypeToFlag(t CallVertexType) callgraph.VertexFlag {
	switch t {
	case VertexLibrary:
		return callgraph.Library
	case VertexThunk:
		return callgraph.Thunk
	case VertexImported:
		return callgraph.Imported
	case VertexInvalid:
		return callgraph.Invalid
	default:
		return 0
	}
}

// CallGraph converts the decoded call graph into callgraph.Build inputs
// and builds the graph.
func (art *Artifact) CallGraph() (*callgraph.Graph, error) {
	vertices := make([]callgraph.RawVertex, len(art.CallVertices))
	for i, v := range art.CallVertices {
		rv := callgraph.RawVertex{
			Address:     v.Address,
			MangledName: v.MangledName,
			ModuleName:  v.ModuleName,
			Flags:       vertexTypeToFlag(v.Type),
		}
		if v.MangledName != "" {
			rv.Flags |= callgraph.HasName
		}
		if v.DemangledName != "" {
			rv.DemangledName = v.DemangledName
			rv.Flags |= callgraph.HasDemangledName
		}
		vertices[i] = rv
	}
	edges := make([]callgraph.RawEdge, len(art.CallEdges))
	for i, e := range art.CallEdges {
		edges[i] = callgraph.RawEdge{Source: e.Source, Target: e.Target}
	}
	return callgraph.Build(vertices, edges)
}

// BuildAll decodes every flow graph in art, builds the call graph,
// records every comment into the call graph's shared comment map keyed
// by (instruction address, CommentOperandNumber), and attaches each flow
// graph to its call-graph vertex by entry address, returning the fully
// wired call graph and the instruction cache used to build it.
func (art *Artifact) BuildAll() (*callgraph.Graph, *inst.Cache, error) {
	cache := inst.NewCache()
	cg, err := art.CallGraph()
	if err != nil {
		return nil, nil, err
	}
	comments := cg.Comments()
	for _, c := range art.Comments {
		if c.InstructionIndex < 0 || c.InstructionIndex >= len(art.Instructions) {
			continue
		}
		key := callgraph.CommentKey{
			Address:    art.Instructions[c.InstructionIndex].Address,
			OperandNum: CommentOperandNumber(c.Type, c.Repeatable, c.OperandIndex),
		}
		comments[key] = c.Text
	}
	for i := range art.FlowGraphs {
		flow, err := art.BuildFlowGraph(cache, i)
		if err != nil {
			return nil, nil, err
		}
		if err := cg.AttachFlowGraph(flow); err != nil {
			return nil, nil, err
		}
	}
	return cg, cache, nil
}

// FunctionAddresses returns the entry address of every decoded flow
// graph, by artifact flow-graph index, used to pair each flow graph with
// its call-graph vertex after both are built.
func (art *Artifact) FunctionAddresses() ([]addr.Address, error) {
	addrs := make([]addr.Address, len(art.FlowGraphs))
	for i, fg := range art.FlowGraphs {
		if fg.EntryBasicBlockIndex < 0 {
			continue
		}
		bbIdx := -1
		for _, candidate := range fg.BasicBlockIndex {
			if candidate == fg.EntryBasicBlockIndex {
				bbIdx = candidate
				break
			}
		}
		if bbIdx == -1 {
			return nil, differr.New(differr.InvalidArgument, "binexport: flow graph entry not among its own basic blocks")
		}
		bb := art.BasicBlocks[bbIdx]
		addrs[i] = art.Instructions[bb.Begin].Address
	}
	return addrs, nil
}
