package flowgraph

import (
	"sort"

	"github.com/oisee/bindiffcore/internal/differr"
	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/inst"
)

// Size gate caps.
const (
	MaxBasicBlocks  = 5000
	MaxEdges        = 5000
	MaxInstructions = 10000
)

// RawInstruction is one already-address-resolved instruction, as produced
// by the binexport decoder's continuous-run address decoding.
type RawInstruction struct {
	Address     addr.Address
	RawBytes    []byte
	Mnemonic    string
	CallTargets []addr.Address
}

// RawBlock is one basic block's instruction interval, in proto order.
type RawBlock struct {
	Instructions []RawInstruction
}

// RawEdge is one control-flow edge between two indices into the BuildInput
// block list.
type RawEdge struct {
	Source, Target int
	Type           EdgeFlag // exactly one of True/False/Unconditional/Switch
}

// BuildInput is the decoded, codec-agnostic shape of one function's flow
// graph, as handed from pkg/binexport to Build.
type BuildInput struct {
	EntryBlock int
	Blocks     []RawBlock
	Edges      []RawEdge
}

// Build constructs a Graph from a decoded function body, interning
// mnemonics through cache, then runs Initialize (topology, MD index, call
// levels, loop marking). If the raw counts exceed the size gate the
// returned graph has Discarded = true and empty vertex/edge/instruction
// data, but correct EntryAddress/ByteHash/counts — this is not an
// error.
//
// Build returns an InvalidArgument-kind error if the blocks are not
// already in ascending-entry-address order once translated to vertices;
// an unsorted input is a graph-construction error, not something Build
// silently tolerates by sorting for the caller.
func Build(cache *inst.Cache, in BuildInput) (*Graph, error) {
	numInstr := 0
	for _, b := range in.Blocks {
		numInstr += len(b.Instructions)
	}
	numBlocks := len(in.Blocks)
	numEdges := len(in.Edges)

	g := &Graph{
		NumBasicBlocks:  numBlocks,
		NumEdges:        numEdges,
		NumInstructions: numInstr,
	}
	if numBlocks > 0 {
		g.EntryAddress = in.Blocks[in.EntryBlock].Instructions[0].Address
	}

	if numBlocks >= MaxBasicBlocks || numEdges >= MaxEdges || numInstr >= MaxInstructions {
		g.Discarded = true
		var allBytes []byte
		for _, b := range in.Blocks {
			for _, raw := range b.Instructions {
				allBytes = append(allBytes, raw.RawBytes...)
			}
		}
		g.ByteHash = addr.SDBMHash(allBytes)
		return g, nil
	}

	// Vertex i corresponds to input block i (order/oldToNew are the
	// identity), so edges authored against the proto's block indices
	// resolve unchanged. A block lacking any instructions has no address
	// and is rejected first; then the blocks must be strictly ascending
	// by address (no duplicates).
	order := make([]int, numBlocks)
	for i := range order {
		order[i] = i
	}
	for _, bi := range order {
		if len(in.Blocks[bi].Instructions) == 0 {
			return nil, differr.New(differr.InvalidArgument,
				"flow graph basic block has no instructions")
		}
	}
	for i := 1; i < numBlocks; i++ {
		if in.Blocks[i].Instructions[0].Address <= in.Blocks[i-1].Instructions[0].Address {
			return nil, differr.New(differr.InvalidArgument,
				"flow graph basic blocks are not in ascending address order")
		}
	}

	oldToNew := make([]int, numBlocks)
	for newIdx, oldIdx := range order {
		oldToNew[oldIdx] = newIdx
	}

	g.Vertices = make([]*Vertex, numBlocks)
	var byteHashInput []byte

	for newIdx, oldIdx := range order {
		block := in.Blocks[oldIdx]
		v := &Vertex{
			CallTargetStart: addr.MaxIndex,
			InstrStart:      uint32(len(g.Instructions)),
		}

		blockBytes := make([]byte, 0, 16*len(block.Instructions))
		for _, raw := range block.Instructions {
			id := cache.Intern(raw.Mnemonic)
			prime := cache.Prime(raw.Mnemonic)
			instr := inst.New(raw.Address, id, prime)
			g.Instructions = append(g.Instructions, instr)
			v.Prime += uint64(prime)

			blockBytes = append(blockBytes, raw.RawBytes...)

			if len(raw.CallTargets) > 0 {
				if v.CallTargetStart == addr.MaxIndex {
					v.CallTargetStart = uint32(len(g.CallTargets))
				}
				g.CallTargets = append(g.CallTargets, raw.CallTargets...)
				v.CallTargetEnd = uint32(len(g.CallTargets))
			}
		}
		v.InstrEnd = uint32(len(g.Instructions))
		v.BasicBlockHash = addr.SDBMHash(blockBytes)

		byteHashInput = append(byteHashInput, blockBytes...)

		g.Vertices[newIdx] = v
		g.PrimeSum += v.Prime
	}
	g.ByteHash = addr.SDBMHash(byteHashInput)
	g.EntryVertex = uint32(oldToNew[in.EntryBlock])

	g.outEdges = make([][]uint32, numBlocks)
	g.inEdges = make([][]uint32, numBlocks)
	for _, re := range in.Edges {
		e := Edge{
			Source: uint32(oldToNew[re.Source]),
			Target: uint32(oldToNew[re.Target]),
			Flags:  re.Type,
		}
		idx := uint32(len(g.Edges))
		g.Edges = append(g.Edges, e)
		g.outEdges[e.Source] = append(g.outEdges[e.Source], idx)
		g.inEdges[e.Target] = append(g.inEdges[e.Target], idx)
	}

	g.Initialize()
	return g, nil
}

// FindVertex performs a lower-bound binary search for address among a
// Graph's vertices, which are required to be stored in ascending
// entry-address order. On miss it returns
// (addr.MaxIndex, false) rather than aborting the process — callers
// decide whether a miss is fatal.
func FindVertex(g *Graph, address addr.Address) (uint32, bool) {
	n := len(g.Vertices)
	i := sort.Search(n, func(i int) bool {
		return g.Instructions[g.Vertices[i].InstrStart].Address() >= address
	})
	if i < n && g.Instructions[g.Vertices[i].InstrStart].Address() == address {
		return uint32(i), true
	}
	return addr.MaxIndex, false
}
