package match

import (
	"context"
	"testing"

	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/callgraph"
	"github.com/oisee/bindiffcore/pkg/flowgraph"
	"github.com/oisee/bindiffcore/pkg/inst"
)

func buildSingleFunctionGraph(t *testing.T, entryAddr uint64) *callgraph.Graph {
	t.Helper()
	cache := inst.NewCache()
	in := flowgraph.BuildInput{
		EntryBlock: 0,
		Blocks: []flowgraph.RawBlock{
			{Instructions: []flowgraph.RawInstruction{
				{Address: addr.Address(entryAddr), RawBytes: []byte{0x55}, Mnemonic: "push"},
				{Address: addr.Address(entryAddr + 1), RawBytes: []byte{0xC3}, Mnemonic: "ret"},
			}},
		},
	}
	flow, err := flowgraph.Build(cache, in)
	if err != nil {
		t.Fatalf("flowgraph.Build: %v", err)
	}

	cg, err := callgraph.Build([]callgraph.RawVertex{
		{Address: addr.Address(entryAddr), MangledName: "f", Flags: callgraph.HasName},
	}, nil)
	if err != nil {
		t.Fatalf("callgraph.Build: %v", err)
	}
	if err := cg.AttachFlowGraph(flow); err != nil {
		t.Fatalf("AttachFlowGraph: %v", err)
	}
	return cg
}

func TestPipelineCommitsIdenticalSingleFunction(t *testing.T) {
	primary := buildSingleFunctionGraph(t, 0x1000)
	secondary := buildSingleFunctionGraph(t, 0x2000)

	p := NewPipeline(primary, secondary)
	set, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", set.Len())
	}
	fp := set.FixedPoints()[0]
	if fp.StepID != "function: hash matching" {
		t.Errorf("StepID = %q, want %q", fp.StepID, "function: hash matching")
	}
	if fp.Similarity != 1.0 {
		t.Errorf("Similarity = %v, want 1.0", fp.Similarity)
	}
	if len(fp.BasicBlocks) != 1 {
		t.Fatalf("len(BasicBlocks) = %d, want 1", len(fp.BasicBlocks))
	}
	if len(fp.BasicBlocks[0].InstructionPairs) != 2 {
		t.Errorf("len(InstructionPairs) = %d, want 2", len(fp.BasicBlocks[0].InstructionPairs))
	}
}

func TestPipelineHonorsManualMatches(t *testing.T) {
	primary := buildSingleFunctionGraph(t, 0x1000)
	secondary := buildSingleFunctionGraph(t, 0x2000)

	p := NewPipeline(primary, secondary)
	p.Manual = []ManualMatch{{PrimaryVertex: 0, SecondaryVertex: 0}}
	// Disable the ordinary catalogue so only the manual commit can occur.
	p.FunctionSteps = nil

	set, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", set.Len())
	}
	if set.FixedPoints()[0].StepID != "function: manual" {
		t.Errorf("StepID = %q, want %q", set.FixedPoints()[0].StepID, "function: manual")
	}
}

func TestSetRejectsDoubleCommit(t *testing.T) {
	s := NewSet()
	if err := s.Commit(&FixedPoint{PrimaryVertex: 0, SecondaryVertex: 0}); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := s.Commit(&FixedPoint{PrimaryVertex: 0, SecondaryVertex: 1}); err == nil {
		t.Errorf("expected duplicate primary commit to fail")
	}
}

func TestRunStopsOnProgressCallback(t *testing.T) {
	primary := buildSingleFunctionGraph(t, 0x1000)
	secondary := buildSingleFunctionGraph(t, 0x2000)
	p := NewPipeline(primary, secondary)

	calls := 0
	set, err := p.Run(context.Background(), func() bool {
		calls++
		return false // stop immediately
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Len() = %d, want 0 when progress stops immediately", set.Len())
	}
	if calls == 0 {
		t.Errorf("progress callback was never invoked")
	}
}
