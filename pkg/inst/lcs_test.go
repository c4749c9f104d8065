package inst

import (
	"testing"

	"github.com/oisee/bindiffcore/pkg/addr"
)

func mk(primes ...uint32) []Instruction {
	out := make([]Instruction, len(primes))
	for i, p := range primes {
		out[i] = New(addr.Address(i), p, p)
	}
	return out
}

func TestLCSEmpty(t *testing.T) {
	if got := LCS(nil, nil); len(got) != 0 {
		t.Errorf("LCS(empty, empty) = %v, want empty", got)
	}
	if got := LCS(nil, mk(1, 2)); len(got) != 0 {
		t.Errorf("LCS(empty, non-empty) = %v, want empty", got)
	}
	if got := LCS(mk(1, 2), nil); len(got) != 0 {
		t.Errorf("LCS(non-empty, empty) = %v, want empty", got)
	}
}

func TestLCSCommonPrefixDiverges(t *testing.T) {
	a := mk(1, 2, 3, 4)
	b := mk(1, 2, 3, 9, 9)
	got := LCS(a, b)
	if len(got) != 3 {
		t.Fatalf("LCS length = %d, want 3", len(got))
	}
	for i := 0; i < 3; i++ {
		if got[i].Primary.Prime() != uint32(i+1) || got[i].Secondary.Prime() != uint32(i+1) {
			t.Errorf("pair %d = %+v, want prime %d on both sides", i, got[i], i+1)
		}
	}
}

func TestLCSInterleaved(t *testing.T) {
	a := mk(1, 2, 3)
	b := mk(0, 1, 0, 2, 0, 3)
	got := LCS(a, b)
	if len(got) != 3 {
		t.Fatalf("LCS length = %d, want 3", len(got))
	}
	want := []uint32{1, 2, 3}
	for i, w := range want {
		if got[i].Primary.Prime() != w {
			t.Errorf("pair %d prime = %d, want %d", i, got[i].Primary.Prime(), w)
		}
	}
}
