package binexport

import "google.golang.org/protobuf/encoding/protowire"

// EncodeFixture is a minimal, test-oriented encoder covering the subset
// of the artifact this package actually consumes: meta information,
// mnemonics, instructions (address present only where explicit is true),
// basic blocks, and a single flow graph. It exists so decode tests can be
// written against a real encoded payload instead of hand-built byte
// literals.
type EncodeFixture struct {
	Meta          MetaInformation
	Mnemonics     []string
	Instructions  []EncodedInstruction
	BasicBlocks   []RawBasicBlock
	FlowGraph     RawFlowGraph
}

// EncodedInstruction is one instruction plus whether its address should
// be written explicitly (simulating the continuous-run omission rule).
type EncodedInstruction struct {
	RawInstruction
	ExplicitAddress bool
	MnemonicIndex   int
}

func appendMessage(dst []byte, field protowire.Number, body []byte) []byte {
	dst = protowire.AppendTag(dst, field, protowire.BytesType)
	dst = protowire.AppendBytes(dst, body)
	return dst
}

func appendVarintField(dst []byte, field protowire.Number, v uint64) []byte {
	dst = protowire.AppendTag(dst, field, protowire.VarintType)
	dst = protowire.AppendVarint(dst, v)
	return dst
}

func appendStringField(dst []byte, field protowire.Number, s string) []byte {
	dst = protowire.AppendTag(dst, field, protowire.BytesType)
	dst = protowire.AppendString(dst, s)
	return dst
}

func appendBytesField(dst []byte, field protowire.Number, b []byte) []byte {
	dst = protowire.AppendTag(dst, field, protowire.BytesType)
	dst = protowire.AppendBytes(dst, b)
	return dst
}

// Encode produces a wire-format artifact payload from f.
func (f EncodeFixture) Encode() []byte {
	var out []byte

	var meta []byte
	meta = appendStringField(meta, metaExecutableName, f.Meta.ExecutableName)
	meta = appendStringField(meta, metaExecutableID, f.Meta.ExecutableID)
	meta = appendStringField(meta, metaArchitecture, f.Meta.Architecture)
	meta = appendVarintField(meta, metaTimestamp, uint64(f.Meta.Timestamp))
	out = appendMessage(out, fieldMeta, meta)

	for _, m := range f.Mnemonics {
		var mn []byte
		mn = appendStringField(mn, mnemonicName, m)
		out = appendMessage(out, fieldMnemonic, mn)
	}

	for _, ins := range f.Instructions {
		var iv []byte
		if ins.ExplicitAddress {
			iv = appendVarintField(iv, instrAddress, uint64(ins.Address))
		}
		iv = appendBytesField(iv, instrRawBytes, ins.RawBytes)
		iv = appendVarintField(iv, instrMnemonicIndex, uint64(ins.MnemonicIndex))
		for _, ct := range ins.CallTargets {
			iv = appendVarintField(iv, instrCallTarget, uint64(ct))
		}
		out = appendMessage(out, fieldInstruction, iv)
	}

	for _, bb := range f.BasicBlocks {
		var bv []byte
		bv = appendVarintField(bv, blockBegin, uint64(bb.Begin))
		bv = appendVarintField(bv, blockEnd, uint64(bb.End))
		out = appendMessage(out, fieldBasicBlock, bv)
	}

	var fg []byte
	fg = appendVarintField(fg, flowEntry, uint64(f.FlowGraph.EntryBasicBlockIndex))
	for _, bi := range f.FlowGraph.BasicBlockIndex {
		fg = appendVarintField(fg, flowBlockIndex, uint64(bi))
	}
	for _, e := range f.FlowGraph.Edges {
		var ev []byte
		ev = appendVarintField(ev, flowEdgeSource, uint64(e.Source))
		ev = appendVarintField(ev, flowEdgeTarget, uint64(e.Target))
		ev = appendVarintField(ev, flowEdgeType, uint64(e.Type))
		if e.IsBackEdge {
			ev = appendVarintField(ev, flowEdgeIsBack, 1)
		}
		fg = appendMessage(fg, flowEdge, ev)
	}
	out = appendMessage(out, fieldFlowGraph, fg)

	return out
}
