package match_test

import (
	"context"
	"testing"

	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/callgraph"
	"github.com/oisee/bindiffcore/pkg/classify"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
	"github.com/oisee/bindiffcore/pkg/inst"
	"github.com/oisee/bindiffcore/pkg/match"
)

// buildDiamondFunctionGraph builds a one-function callgraph whose flow
// graph is a diamond: an entry block branching true/false into two
// single-instruction blocks that both fall through to a shared exit
// block. entryBytes/entryMnemonic let a caller vary only the entry
// block's content while holding every other block and every edge fixed.
// When extraTail is true a fifth block is appended after the exit block,
// changing the vertex and edge counts without touching the entry.
func buildDiamondFunctionGraph(t *testing.T, base uint64, entryMnemonic string, entryBytes []byte, extraTail bool) *callgraph.Graph {
	t.Helper()
	cache:= inst.NewCache()
	blocks:= []flowgraph.RawBlock{
		{Instructions: []flowgraph.RawInstruction{
			{Address: addr.Address(base), RawBytes: entryBytes, Mnemonic: entryMnemonic},
		}},
		{Instructions: []flowgraph.RawInstruction{
			{Address: addr.Address(base + 1), RawBytes: []byte{0x90}, Mnemonic: "nop"},
		}},
		{Instructions: []flowgraph.RawInstruction{
			{Address: addr.Address(base + 2), RawBytes: []byte{0x90}, Mnemonic: "nop"},
		}},
		{Instructions: []flowgraph.RawInstruction{
			{Address: addr.Address(base + 3), RawBytes: []byte{0xC3}, Mnemonic: "ret"},
		}},
	}
	edges:= []flowgraph.RawEdge{
		{Source: 0, Target: 1, Type: flowgraph.EdgeTrue},
		{Source: 0, Target: 2, Type: flowgraph.EdgeFalse},
		{Source: 1, Target: 3, Type: flowgraph.EdgeUnconditional},
		{Source: 2, Target: 3, Type: flowgraph.EdgeUnconditional},
	}
	if extraTail {
		blocks = append(blocks, flowgraph.RawBlock{Instructions: []flowgraph.RawInstruction{
			{Address: addr.Address(base + 4), RawBytes: []byte{0x90}, Mnemonic: "nop"},
		}})
		edges = append(edges, flowgraph.RawEdge{Source: 3, Target: 4, Type: flowgraph.EdgeUnconditional})
	}

	flow, err:= flowgraph.Build(cache, flowgraph.BuildInput{EntryBlock: 0, Blocks: blocks, Edges: edges})
	if err != nil {
		t.Fatalf("flowgraph.Build: %v", err)
	}
	cg, err:= callgraph.Build([]callgraph.RawVertex{
		{Address: addr.Address(base), MangledName: "f", Flags: callgraph.HasName},
	}, nil)
	if err != nil {
		t.Fatalf("callgraph.Build: %v", err)
	}
	if err:= cg.AttachFlowGraph(flow); err != nil {
		t.Fatalf("AttachFlowGraph: %v", err)
	}
	return cg
}

// TestEntryInstructionChangeFlagsInstructionsAndEntryPoint reproduces the
// "differ only in the entry instruction" scenario: two otherwise-identical
// four-basic-block functions whose entry block carries a different
// instruction. The fixed point must still resolve all four basic blocks,
// and classification must report both an instruction change and an entry
// point change, nothing else.
func TestEntryInstructionChangeFlagsInstructionsAndEntryPoint(t *testing.T) {
	primary:= buildDiamondFunctionGraph(t, 0x1000, "test", []byte{0x85, 0xC0}, false)
	secondary:= buildDiamondFunctionGraph(t, 0x2000, "sub", []byte{0x29, 0xC0}, false)

	p:= match.NewPipeline(primary, secondary)
	p.Manual = []match.ManualMatch{{PrimaryVertex: 0, SecondaryVertex: 0}}
	p.FunctionSteps = nil

	set, err:= p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", set.Len())
	}
	fp:= set.FixedPoints()[0]
	if len(fp.BasicBlocks) != 4 {
		t.Fatalf("len(BasicBlocks) = %d, want 4", len(fp.BasicBlocks))
	}

	pf, _:= primary.AttachedFlowGraph(fp.PrimaryAddress)
	sf, _:= secondary.AttachedFlowGraph(fp.SecondaryAddress)
	classify.Classify(fp, primary, secondary, pf, sf)

	if fp.Flags&match.ChangeInstructions == 0 {
		t.Errorf("Flags = %v, want ChangeInstructions set", fp.Flags)
	}
	if fp.Flags&match.ChangeEntryPoint == 0 {
		t.Errorf("Flags = %v, want ChangeEntryPoint set", fp.Flags)
	}
	if fp.Flags&match.ChangeStructural != 0 {
		t.Errorf("Flags = %v, want ChangeStructural unset", fp.Flags)
	}
}

// TestExtraBasicBlockFlagsStructural reproduces the "secondary gains a
// basic block" scenario: identical entry blocks, but the primary's flow
// graph has one fewer vertex and edge than the secondary's.
func TestExtraBasicBlockFlagsStructural(t *testing.T) {
	entryBytes:= []byte{0x85, 0xC0}
	primary:= buildDiamondFunctionGraph(t, 0x1000, "test", entryBytes, false)
	secondary:= buildDiamondFunctionGraph(t, 0x2000, "test", entryBytes, true)

	p:= match.NewPipeline(primary, secondary)
	p.Manual = []match.ManualMatch{{PrimaryVertex: 0, SecondaryVertex: 0}}
	p.FunctionSteps = nil

	set, err:= p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fp:= set.FixedPoints()[0]

	pf, _:= primary.AttachedFlowGraph(fp.PrimaryAddress)
	sf, _:= secondary.AttachedFlowGraph(fp.SecondaryAddress)
	classify.Classify(fp, primary, secondary, pf, sf)

	if fp.Flags&match.ChangeStructural == 0 {
		t.Errorf("Flags = %v, want ChangeStructural set", fp.Flags)
	}
}

// buildSingleInstructionVertex builds a RawVertex/flowgraph.Graph pair for
// a one-block, one-instruction function at address, returning the flow
// graph so the caller can attach it to a shared callgraph.
func buildSingleInstructionVertex(t *testing.T, address uint64, mnemonic string, rawBytes []byte) (callgraph.RawVertex, *flowgraph.Graph) {
	t.Helper()
	cache:= inst.NewCache()
	flow, err:= flowgraph.Build(cache, flowgraph.BuildInput{
		EntryBlock: 0,
		Blocks: []flowgraph.RawBlock{
			{Instructions: []flowgraph.RawInstruction{
				{Address: addr.Address(address), RawBytes: rawBytes, Mnemonic: mnemonic},
			}},
		},
	})
	if err != nil {
		t.Fatalf("flowgraph.Build: %v", err)
	}
	return callgraph.RawVertex{Address: addr.Address(address), MangledName: "f", Flags: callgraph.HasName}, flow
}

// TestRunCheckpointsAfterFirstCommittedStep reproduces "stop requested
// after the first commit": two independent function pairs are set up so
// the first, identical-byte pair commits in the very first function
// step ("function: hash matching"), while the second pair's entry bytes
// differ between primary and secondary and only bucket together one step
// later ("function: edges flowgraph MD index", both single-block with
// zero edges so their MD index is 0 on both sides regardless of content).
// The progress callback lets the first step run, then stops before the
// second, so exactly one fixed point survives and the result is
// available from CheckpointPath without ever re-running the pipeline.
func TestRunCheckpointsAfterFirstCommittedStep(t *testing.T) {
	aPrimaryVertex, aPrimaryFlow:= buildSingleInstructionVertex(t, 0x1000, "push", []byte{0x55})
	aSecondaryVertex, aSecondaryFlow:= buildSingleInstructionVertex(t, 0x2000, "push", []byte{0x55})
	bPrimaryVertex, bPrimaryFlow:= buildSingleInstructionVertex(t, 0x3000, "nop", []byte{0x90})
	bSecondaryVertex, bSecondaryFlow:= buildSingleInstructionVertex(t, 0x4000, "xor", []byte{0x31, 0xC0})

	primary, err:= callgraph.Build([]callgraph.RawVertex{aPrimaryVertex, bPrimaryVertex}, nil)
	if err != nil {
		t.Fatalf("callgraph.Build: %v", err)
	}
	secondary, err:= callgraph.Build([]callgraph.RawVertex{aSecondaryVertex, bSecondaryVertex}, nil)
	if err != nil {
		t.Fatalf("callgraph.Build: %v", err)
	}
	for _, f:= range []*flowgraph.Graph{aPrimaryFlow, bPrimaryFlow} {
		if err:= primary.AttachFlowGraph(f); err != nil {
			t.Fatalf("AttachFlowGraph: %v", err)
		}
	}
	for _, f:= range []*flowgraph.Graph{aSecondaryFlow, bSecondaryFlow} {
		if err:= secondary.AttachFlowGraph(f); err != nil {
			t.Fatalf("AttachFlowGraph: %v", err)
		}
	}

	checkpointPath:= t.TempDir() + "/checkpoint.gob"
	p:= match.NewPipeline(primary, secondary)
	p.CheckpointPath = checkpointPath

	steps:= 0
	set, err:= p.Run(context.Background(), func() bool {
		steps++
		return steps <= 1 // let the first step run, stop before the second
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", set.Len())
	}
	if set.FixedPoints()[0].StepID != "function: hash matching" {
		t.Errorf("StepID = %q, want %q", set.FixedPoints()[0].StepID, "function: hash matching")
	}

	ck, err:= match.LoadCheckpoint(checkpointPath)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if len(ck.FixedPoints) != 1 {
		t.Fatalf("len(ck.FixedPoints) = %d, want 1", len(ck.FixedPoints))
	}
	rebuilt, err:= ck.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if rebuilt.Len() != 1 {
		t.Errorf("rebuilt.Len() = %d, want 1", rebuilt.Len())
	}
}
