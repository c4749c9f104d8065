package steps

import "testing"

func TestFunctionStepCatalogueIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range DefaultFunctionSteps() {
		if seen[s.ID] {
			t.Fatalf("duplicate function step id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Signature == nil {
			t.Fatalf("step %q has a nil signature", s.ID)
		}
	}
	if seen[ManualFunctionStepID] || seen[CallReferenceFunctionStepID] {
		t.Fatalf("reserved ids must not appear in the ordinary catalogue")
	}
}

func TestBasicBlockStepCatalogueIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range DefaultBasicBlockSteps() {
		if seen[s.ID] {
			t.Fatalf("duplicate basic block step id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Signature == nil {
			t.Fatalf("step %q has a nil signature", s.ID)
		}
	}
	if seen[PropagationBasicBlockStepID] || seen[ManualBasicBlockStepID] {
		t.Fatalf("reserved ids must not appear in the ordinary catalogue")
	}
}

func TestHashMatchingSignatureExcludesDiscardedGraph(t *testing.T) {
	steps := DefaultFunctionSteps()
	var hashStep FunctionStep
	for _, s := range steps {
		if s.ID == "function: hash matching" {
			hashStep = s
		}
	}
	if _, ok := hashStep.Signature(FunctionContext{}); ok {
		t.Errorf("hash matching signature should report ok=false with a nil flow graph")
	}
}
