package flowgraph

import (
	"testing"

	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/inst"
)

func blk(startAddr uint64, mnemonics ...string) RawBlock {
	b := RawBlock{}
	a := startAddr
	for _, m := range mnemonics {
		b.Instructions = append(b.Instructions, RawInstruction{
			Address:  addr.Address(a),
			RawBytes: []byte{byte(a), 0x90},
			Mnemonic: m,
		})
		a += 2
	}
	return b
}

// buildLoop constructs:
//
//	0: entry -> 1 (uncond)
//	1: loop header, -> 2 (true), -> 3 (false)
//	2: -> 1 (uncond, back edge)
//	3: exit
func buildLoop(t *testing.T) *Graph {
	t.Helper()
	in := BuildInput{
		EntryBlock: 0,
		Blocks: []RawBlock{
			blk(0x1000, "push"),
			blk(0x1010, "cmp"),
			blk(0x1020, "inc"),
			blk(0x1030, "ret"),
		},
		Edges: []RawEdge{
			{Source: 0, Target: 1, Type: EdgeUnconditional},
			{Source: 1, Target: 2, Type: EdgeTrue},
			{Source: 1, Target: 3, Type: EdgeFalse},
			{Source: 2, Target: 1, Type: EdgeUnconditional},
		},
	}
	g, err := Build(inst.NewCache(), in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Discarded {
		t.Fatalf("graph unexpectedly discarded")
	}
	return g
}

func TestBuildOrdersVerticesByAddress(t *testing.T) {
	g := buildLoop(t)
	if len(g.Vertices) != 4 {
		t.Fatalf("len(Vertices) = %d, want 4", len(g.Vertices))
	}
	for i := 1; i < len(g.Vertices); i++ {
		prevAddr := g.Instructions[g.Vertices[i-1].InstrStart].Address()
		curAddr := g.Instructions[g.Vertices[i].InstrStart].Address()
		if prevAddr >= curAddr {
			t.Fatalf("vertices not in ascending address order: %v >= %v", prevAddr, curAddr)
		}
	}
}

func TestLoopMarking(t *testing.T) {
	g := buildLoop(t)
	v1, ok := FindVertex(g, 0x1010)
	if !ok {
		t.Fatalf("FindVertex(0x1010) not found")
	}
	if !g.Vertices[v1].IsLoopEntry() {
		t.Errorf("vertex at 0x1010 should be a loop entry")
	}
	if g.LoopCount != 1 {
		t.Errorf("LoopCount = %d, want 1", g.LoopCount)
	}

	v2, _ := FindVertex(g, 0x1020)
	backEdgeFound := false
	for _, ei := range g.OutEdges(v2) {
		if g.Edges[ei].IsDominated() {
			backEdgeFound = true
		}
	}
	if !backEdgeFound {
		t.Errorf("expected the 0x1020 -> 0x1010 edge to be marked dominated")
	}
}

func TestFindVertexMiss(t *testing.T) {
	g := buildLoop(t)
	if _, ok := FindVertex(g, 0xdeadbeef); ok {
		t.Errorf("FindVertex should miss for an address not present")
	}
}

func TestMDIndexDeterministic(t *testing.T) {
	g1 := buildLoop(t)
	g2 := buildLoop(t)
	if g1.MDIndex != g2.MDIndex {
		t.Errorf("MDIndex not deterministic: %v != %v", g1.MDIndex, g2.MDIndex)
	}
	if g1.MDIndex <= 0 {
		t.Errorf("MDIndex = %v, want > 0 for a non-trivial graph", g1.MDIndex)
	}
}

func TestSizeGateDiscardsOversizedFunction(t *testing.T) {
	var blocks []RawBlock
	for i := 0; i < MaxBasicBlocks+1; i++ {
		blocks = append(blocks, blk(uint64(i)*4, "nop"))
	}
	g, err := Build(inst.NewCache(), BuildInput{EntryBlock: 0, Blocks: blocks})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.Discarded {
		t.Fatalf("graph should have been discarded by the size gate")
	}
	if g.NumBasicBlocks != MaxBasicBlocks+1 {
		t.Errorf("NumBasicBlocks = %d, want %d", g.NumBasicBlocks, MaxBasicBlocks+1)
	}
	if len(g.Vertices) != 0 {
		t.Errorf("Vertices should be empty on discard")
	}
}
