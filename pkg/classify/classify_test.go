package classify

import (
	"testing"

	"github.com/oisee/bindiffcore/pkg/inst"
	"github.com/oisee/bindiffcore/pkg/match"
)

func TestChangeFlagsStringFixtures(t *testing.T) {
	cases := []struct {
		flags match.ChangeFlags
		want  string
	}{
		{0, "-------"},
		{match.ChangeStructural | match.ChangeInstructions | match.ChangeOperands |
			match.ChangeBranchInversion | match.ChangeEntryPoint | match.ChangeLoops |
			match.ChangeCalls, "GIOJELC"},
		{match.ChangeStructural | match.ChangeOperands | match.ChangeEntryPoint | match.ChangeCalls, "G-O-E-C"},
		{match.ChangeInstructions | match.ChangeEntryPoint, "-I--E--"},
	}
	for _, c := range cases {
		if got := c.flags.String(); got != c.want {
			t.Errorf("ChangeFlags(%b).String() = %q, want %q", c.flags, got, c.want)
		}
	}
}

func TestSummarizeEmptySet(t *testing.T) {
	set := match.NewSet()
	r := Summarize(set, 0, 0)
	if r.Similarity != 1 {
		t.Errorf("Similarity = %v, want 1 for two empty sides", r.Similarity)
	}
	if r.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 with no matched functions", r.Confidence)
	}
	if r.MatchedFunctions != 0 {
		t.Errorf("MatchedFunctions = %d, want 0", r.MatchedFunctions)
	}
}

func TestSummarizeCountsAndHistogram(t *testing.T) {
	set := match.NewSet()
	fp1 := &match.FixedPoint{
		PrimaryVertex: 0, SecondaryVertex: 0,
		StepID: "function: hash matching", Confidence: 1.0, Similarity: 1.0,
		BasicBlocks: []match.BasicBlockFixedPoint{
			{StepID: "basic block: hash matching", InstructionPairs: make([]inst.Pair, 2)},
		},
	}
	fp2 := &match.FixedPoint{
		PrimaryVertex: 1, SecondaryVertex: 1,
		StepID: "function: edges flowgraph MD index", Confidence: 1.0, Similarity: 0.5,
	}
	if err := set.Commit(fp1); err != nil {
		t.Fatalf("Commit fp1: %v", err)
	}
	if err := set.Commit(fp2); err != nil {
		t.Fatalf("Commit fp2: %v", err)
	}

	r := Summarize(set, 2, 2)
	if r.MatchedFunctions != 2 {
		t.Errorf("MatchedFunctions = %d, want 2", r.MatchedFunctions)
	}
	if r.FunctionStepHistogram["function: hash matching"] != 1 {
		t.Errorf("histogram[hash matching] = %d, want 1", r.FunctionStepHistogram["function: hash matching"])
	}
	if r.MatchedBasicBlocks != 1 {
		t.Errorf("MatchedBasicBlocks = %d, want 1", r.MatchedBasicBlocks)
	}
	if r.MatchedInstructions != 2 {
		t.Errorf("MatchedInstructions = %d, want 2", r.MatchedInstructions)
	}
	wantSimilarity := (2 * (1.0 + 0.5)) / 4.0
	if r.Similarity != wantSimilarity {
		t.Errorf("Similarity = %v, want %v", r.Similarity, wantSimilarity)
	}
	wantConfidence := (1.0 + 1.0) / 2
	if r.Confidence != wantConfidence {
		t.Errorf("Confidence = %v, want %v", r.Confidence, wantConfidence)
	}
}
