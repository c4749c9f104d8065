package binexport

import (
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/oisee/bindiffcore/internal/differr"
	"github.com/oisee/bindiffcore/pkg/addr"
)

// kMaxOp is the base offset used to disambiguate non-operand comment
// kinds from real operand indices when the two are hashed together.
const kMaxOp = 8

// CommentOperandNumber computes the synthetic operand-number used as part
// of a comment's hash key.
func CommentOperandNumber(typ CommentType, repeatable bool, operandIndex int) int {
	switch typ {
	case CommentDefault:
		if repeatable {
			return kMaxOp + 1
		}
		return kMaxOp + 2
	case CommentEnum:
		return operandIndex
	case CommentAnterior:
		return kMaxOp + 3
	case CommentPosterior:
		return kMaxOp + 4
	case CommentFunction:
		if repeatable {
			return kMaxOp + 5
		}
		return kMaxOp + 6
	case CommentLocation:
		return kMaxOp + 7
	case CommentGlobalReference:
		return kMaxOp + 1024 + operandIndex
	case CommentLocalReference:
		return kMaxOp + 2018 + operandIndex
	default:
		return operandIndex
	}
}

// Decode reads a length-delimited binary-export artifact from r in full
// and parses it into an Artifact.
func Decode(r io.Reader) (*Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, differr.Wrap(differr.Internal, "binexport: read artifact", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses an already-buffered artifact payload.
func DecodeBytes(data []byte) (*Artifact, error) {
	var (
		art         Artifact
		mnemonics   []string
		lastAddress addr.Address
		haveLast    bool
	)

	err := walkMessage(data, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldMeta:
			return walkMessage(v, func(n protowire.Number, _ protowire.Type, mv []byte) error {
				switch n {
				case metaExecutableName:
					art.Meta.ExecutableName = asString(mv)
				case metaExecutableID:
					art.Meta.ExecutableID = asString(mv)
				case metaArchitecture:
					art.Meta.Architecture = asString(mv)
				case metaTimestamp:
					art.Meta.Timestamp = int64(asVarint(mv))
				}
				return nil
			})
		case fieldStringTable:
			art.StringTable = append(art.StringTable, asString(v))
		case fieldMnemonic:
			name := ""
			err := walkMessage(v, func(n protowire.Number, _ protowire.Type, mv []byte) error {
				if n == mnemonicName {
					name = asString(mv)
				}
				return nil
			})
			mnemonics = append(mnemonics, name)
			return err
		case fieldExpression:
			e := Expression{}
			err := walkMessage(v, func(n protowire.Number, _ protowire.Type, ev []byte) error {
				switch n {
				case exprType:
					e.Type = ExpressionType(asVarint(ev))
				case exprSymbol:
					e.Symbol = asString(ev)
				case exprImmediate:
					e.Immediate = int64(asVarint(ev))
				case exprHasParent:
					e.HasParent = asVarint(ev) != 0
				case exprParent:
					e.ParentIndex = int(asVarint(ev))
				}
				return nil
			})
			art.Expressions = append(art.Expressions, e)
			return err
		case fieldOperand:
			op := Operand{}
			err := walkMessage(v, func(n protowire.Number, _ protowire.Type, ov []byte) error {
				if n == operandExpressionIndex {
					op.ExpressionIndex = append(op.ExpressionIndex, int(asVarint(ov)))
				}
				return nil
			})
			art.Operands = append(art.Operands, op)
			return err
		case fieldInstruction:
			ri := RawInstruction{}
			hasAddress := false
			mnemonicIdx := -1
			err := walkMessage(v, func(n protowire.Number, _ protowire.Type, iv []byte) error {
				switch n {
				case instrAddress:
					ri.Address = addr.Address(asVarint(iv))
					hasAddress = true
				case instrRawBytes:
					ri.RawBytes = append([]byte(nil), iv...)
				case instrMnemonicIndex:
					mnemonicIdx = int(asVarint(iv))
				case instrOperandIndex:
					ri.OperandIndex = append(ri.OperandIndex, int(asVarint(iv)))
				case instrCallTarget:
					ri.CallTargets = append(ri.CallTargets, addr.Address(asVarint(iv)))
				}
				return nil
			})
			if err != nil {
				return err
			}
			if hasAddress {
				lastAddress = ri.Address
				haveLast = true
			} else {
				if !haveLast {
					return differr.New(differr.InvalidArgument, "binexport: instruction stream does not start with an explicit address")
				}
				ri.Address = lastAddress
			}
			lastAddress += addr.Address(len(ri.RawBytes))
			if mnemonicIdx >= 0 && mnemonicIdx < len(mnemonics) {
				ri.MnemonicName = mnemonics[mnemonicIdx]
			}
			art.Instructions = append(art.Instructions, ri)
		case fieldBasicBlock:
			rb := RawBasicBlock{End: -1}
			err := walkMessage(v, func(n protowire.Number, _ protowire.Type, bv []byte) error {
				switch n {
				case blockBegin:
					rb.Begin = int(asVarint(bv))
				case blockEnd:
					rb.End = int(asVarint(bv))
				}
				return nil
			})
			if rb.End == -1 {
				rb.End = rb.Begin + 1
			}
			art.BasicBlocks = append(art.BasicBlocks, rb)
			return err
		case fieldFlowGraph:
			fg := RawFlowGraph{}
			err := walkMessage(v, func(n protowire.Number, _ protowire.Type, fv []byte) error {
				switch n {
				case flowEntry:
					fg.EntryBasicBlockIndex = int(asVarint(fv))
				case flowBlockIndex:
					fg.BasicBlockIndex = append(fg.BasicBlockIndex, int(asVarint(fv)))
				case flowEdge:
					re := RawEdge{}
					err := walkMessage(fv, func(en protowire.Number, _ protowire.Type, ev []byte) error {
						switch en {
						case flowEdgeSource:
							re.Source = int(asVarint(ev))
						case flowEdgeTarget:
							re.Target = int(asVarint(ev))
						case flowEdgeType:
							re.Type = EdgeType(asVarint(ev))
						case flowEdgeIsBack:
							re.IsBackEdge = asVarint(ev) != 0
						}
						return nil
					})
					if err != nil {
						return err
					}
					fg.Edges = append(fg.Edges, re)
				}
				return nil
			})
			art.FlowGraphs = append(art.FlowGraphs, fg)
			return err
		case fieldCallGraph:
			return walkMessage(v, func(n protowire.Number, _ protowire.Type, cv []byte) error {
				switch n {
				case callVertex:
					vertex := RawCallVertex{}
					err := walkMessage(cv, func(vn protowire.Number, _ protowire.Type, vv []byte) error {
						switch vn {
						case vertexAddress:
							vertex.Address = addr.Address(asVarint(vv))
						case vertexMangledName:
							vertex.MangledName = asString(vv)
						case vertexDemangledName:
							vertex.DemangledName = asString(vv)
						case vertexModuleName:
							vertex.ModuleName = asString(vv)
						case vertexType:
							vertex.Type = CallVertexType(asVarint(vv))
						}
						return nil
					})
					if err != nil {
						return err
					}
					art.CallVertices = append(art.CallVertices, vertex)
				case callEdge:
					ce := RawCallEdge{}
					err := walkMessage(cv, func(en protowire.Number, _ protowire.Type, ev []byte) error {
						switch en {
						case callEdgeSource:
							ce.Source = int(asVarint(ev))
						case callEdgeTarget:
							ce.Target = int(asVarint(ev))
						}
						return nil
					})
					if err != nil {
						return err
					}
					art.CallEdges = append(art.CallEdges, ce)
				}
				return nil
			})
		case fieldComment:
			rc := RawComment{}
			stringIdx := -1
			err := walkMessage(v, func(n protowire.Number, _ protowire.Type, cv []byte) error {
				switch n {
				case commentInstructionIndex:
					rc.InstructionIndex = int(asVarint(cv))
				case commentOperandIndex:
					rc.OperandIndex = int(asVarint(cv))
				case commentType:
					rc.Type = CommentType(asVarint(cv))
				case commentRepeatable:
					rc.Repeatable = asVarint(cv) != 0
				case commentStringTableIndex:
					stringIdx = int(asVarint(cv))
				}
				return nil
			})
			if err != nil {
				return err
			}
			if stringIdx >= 0 && stringIdx < len(art.StringTable) {
				rc.Text = art.StringTable[stringIdx]
			}
			art.Comments = append(art.Comments, rc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &art, nil
}
