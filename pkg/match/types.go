// Package match implements the two-level matching pipeline (C6): an
// ordered function-step loop over the call graph, a basic-block
// sub-pipeline per committed function pair, and call-reference
// propagation iterated to a fixed point.
package match

import (
	"github.com/oisee/bindiffcore/pkg/addr"
	"github.com/oisee/bindiffcore/pkg/inst"
)

// ChangeFlags is the 7-bit change vector computed by pkg/classify and
// attached back onto a committed FixedPoint; defined here (not in
// classify) so match has no dependency on classify while classify can
// freely depend on match.
type ChangeFlags uint8

const (
	ChangeStructural ChangeFlags = 1 << iota
	ChangeInstructions
	ChangeOperands
	ChangeBranchInversion
	ChangeEntryPoint
	ChangeLoops
	ChangeCalls
)

// changeFlagLetters is the display-order letter for each bit, G I O J E L C.
// String renders exactly 7 characters, '-' for an absent bit.
var changeFlagLetters = [...]byte{'G', 'I', 'O', 'J', 'E', 'L', 'C'}

func (f ChangeFlags) String() string {
	var buf [7]byte
	for i := range buf {
		bit := ChangeFlags(1 << i)
		if f&bit != 0 {
			buf[i] = changeFlagLetters[i]
		} else {
			buf[i] = '-'
		}
	}
	return string(buf[:])
}

// BasicBlockFixedPoint is one matched basic-block pair within a matched
// function pair.
type BasicBlockFixedPoint struct {
	PrimaryVertex, SecondaryVertex     uint32
	PrimaryAddress, SecondaryAddress   addr.Address
	StepID                             string
	Confidence                         float64
	InstructionPairs                   []inst.Pair
	PrimaryInstructionCount            int
	SecondaryInstructionCount          int
}

// FixedPoint is one matched function pair.
type FixedPoint struct {
	PrimaryVertex, SecondaryVertex   uint32
	PrimaryAddress, SecondaryAddress addr.Address
	StepID                           string
	Confidence                       float64
	Similarity                       float64
	Flags                            ChangeFlags
	BasicBlocks                      []BasicBlockFixedPoint
}
