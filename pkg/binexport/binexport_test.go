package binexport

import (
	"bytes"
	"testing"

	"github.com/oisee/bindiffcore/pkg/addr"
)

// instrBytes returns a RawBytes slice of the given length, content
// irrelevant to address derivation.
func instrBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0x90
	}
	return b
}

func TestContinuousRunAddressDecoding(t *testing.T) {
	var instructions []EncodedInstruction
	explicit := map[int]addr.Address{0: 0x10000000, 4: 0x10000100, 8: 0x20000000}
	for i := 0; i < 10; i++ {
		size := 4
		if i%2 == 1 {
			size = 8
		}
		ei := EncodedInstruction{
			RawInstruction: RawInstruction{RawBytes: instrBytes(size)},
			MnemonicIndex:  0,
		}
		if a, ok := explicit[i]; ok {
			ei.Address = a
			ei.ExplicitAddress = true
		}
		instructions = append(instructions, ei)
	}
	fixture := EncodeFixture{
		Meta:         MetaInformation{ExecutableName: "t"},
		Mnemonics:    []string{"nop"},
		Instructions: instructions,
	}
	art, err := DecodeBytes(fixture.Encode())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	checks := map[int]addr.Address{
		0: 0x10000000,
		3: 0x10000010,
		7: 0x10000110,
		9: 0x20000004,
	}
	for idx, want := range checks {
		if got := art.Instructions[idx].Address; got != want {
			t.Errorf("Instructions[%d].Address = %v, want %v", idx, got, want)
		}
	}
}

func TestCommentOperandNumberEncoding(t *testing.T) {
	cases := []struct {
		typ        CommentType
		repeatable bool
		opIdx      int
		want       int
	}{
		{CommentDefault, true, 0, kMaxOp + 1},
		{CommentDefault, false, 0, kMaxOp + 2},
		{CommentEnum, false, 5, 5},
		{CommentAnterior, false, 0, kMaxOp + 3},
		{CommentPosterior, false, 0, kMaxOp + 4},
		{CommentFunction, true, 0, kMaxOp + 5},
		{CommentFunction, false, 0, kMaxOp + 6},
		{CommentLocation, false, 0, kMaxOp + 7},
		{CommentGlobalReference, false, 2, kMaxOp + 1024 + 2},
		{CommentLocalReference, false, 3, kMaxOp + 2018 + 3},
	}
	for _, c := range cases {
		if got := CommentOperandNumber(c.typ, c.repeatable, c.opIdx); got != c.want {
			t.Errorf("CommentOperandNumber(%v, %v, %d) = %d, want %d", c.typ, c.repeatable, c.opIdx, got, c.want)
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		MetaOffset:      16,
		CallGraphOffset: 32,
		NumFlowGraphs:   2,
		FlowGraphOffsets: []FlowGraphOffset{
			{Address: 0x1000, Offset: 100},
			{Address: 0x2000, Offset: 200},
		},
	}
	var buf bytes.Buffer
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	// Pad so the synthetic trailing entry has a well-defined file size.
	buf.Write(make([]byte, 300))

	got, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.MetaOffset != h.MetaOffset || got.CallGraphOffset != h.CallGraphOffset || got.NumFlowGraphs != h.NumFlowGraphs {
		t.Fatalf("header fields mismatch: %+v", got)
	}
	if len(got.FlowGraphOffsets) != 3 {
		t.Fatalf("len(FlowGraphOffsets) = %d, want 3 (2 declared + synthetic trailer)", len(got.FlowGraphOffsets))
	}
	trailer := got.FlowGraphOffsets[2]
	if trailer.Address != 0 || trailer.Offset != uint32(buf.Len()) {
		t.Errorf("synthetic trailer = %+v, want {0, %d}", trailer, buf.Len())
	}
}

func TestRenderOperandImmediateZeroSuppressionAndRegisterList(t *testing.T) {
	art := &Artifact{
		Expressions: []Expression{
			{Type: ExprOperator, Symbol: "+"},            // 0: root
			{Type: ExprRegister, Symbol: "eax", HasParent: true, ParentIndex: 0}, // 1
			{Type: ExprImmediate, Immediate: 0, HasParent: true, ParentIndex: 0}, // 2
		},
		Operands: []Operand{
			{ExpressionIndex: []int{0}},
		},
	}
	got := art.RenderOperand(0, true)
	if got != "eax" {
		t.Errorf("RenderOperand with +0 suppression = %q, want %q", got, "eax")
	}
}

func TestRenderOperandSignExtension32(t *testing.T) {
	art := &Artifact{
		Expressions: []Expression{
			{Type: ExprImmediate, Immediate: 0xFFFFFFFF},
		},
		Operands: []Operand{{ExpressionIndex: []int{0}}},
	}
	got := art.RenderOperand(0, true)
	if got != "-0x1" {
		t.Errorf("RenderOperand 32-bit sign extension = %q, want %q", got, "-0x1")
	}
}
